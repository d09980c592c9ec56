// Package compiler parses X# tokens into an AST and compiles the AST to
// XAssembly.
package compiler

import "github.com/lookbusy1344/xenon-toolchain/lexer"

// Node is the closed AST variant set.
type Node interface {
	Pos() lexer.Span
}

type base struct{ span lexer.Span }

func (b base) Pos() lexer.Span { return b.span }

type IntLiteral struct {
	base
	Value int
}

type Identifier struct {
	base
	Name string
}

type ArrayLiteral struct {
	base
	Elements []Node
}

type ArrayAccess struct {
	base
	Array Node
	Index Node
}

type ArraySet struct {
	base
	Array Node
	Index Node
	Value Node
}

type BinaryOp struct {
	base
	Left  Node
	Op    lexer.Token
	Right Node
}

type UnaryOp struct {
	base
	Op      lexer.Token
	Operand Node
	Postfix bool
}

type ConstDef struct {
	base
	Name string
	Expr Node
}

type VarDecl struct {
	base
	Name   string
	Type   string // "int" | "bool"
	Length Node   // nil, *IntLiteral, or *Identifier (a const name)
	Init   Node   // may be nil when Length is present
}

type Assignment struct {
	base
	Target *Identifier // array targets are parsed directly as ArraySet
	Expr   Node
}

type ForLoop struct {
	base
	Iterator string
	Start    Node
	End      Node
	Step     Node
	Body     *Statements
}

type CForLoop struct {
	base
	Iterator string
	Start    Node
	EndOp    lexer.TokenType // <, <=, >, >=
	End      Node
	StepOp   lexer.TokenType // +, -
	Step     Node
	Body     *Statements
}

type WhileLoop struct {
	base
	Cond Node
	Body *Statements
}

type IfCase struct {
	Cond Node
	Body *Statements
}

type IfStatement struct {
	base
	Cases []IfCase
	Else  *Statements
}

type SubroutineDef struct {
	base
	Name   string
	Params []string
	Body   *Statements
}

type CallExpression struct {
	base
	Name string
	Args []Node
}

type Statements struct {
	base
	Body []Node
}
