package compiler_test

import (
	"testing"

	"github.com/lookbusy1344/xenon-toolchain/compiler"
	"github.com/lookbusy1344/xenon-toolchain/lexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSource map[string]string

func (m mapSource) Read(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

func lexOK(t *testing.T, src string) []lexer.Token {
	t.Helper()
	toks, err := lexer.Lex("test.xs", src, mapSource{}, true)
	require.Nil(t, err, "lex error: %v", err)
	return toks
}

func TestParseConstDef(t *testing.T) {
	toks := lexOK(t, "const x 3\n")
	stmts, err := compiler.Parse(toks)
	require.Nil(t, err)
	require.Len(t, stmts.Body, 1)
	def, ok := stmts.Body[0].(*compiler.ConstDef)
	require.True(t, ok)
	assert.Equal(t, "x", def.Name)
}

func TestParseVarDeclWithArrayLength(t *testing.T) {
	toks := lexOK(t, "var a: int[3] = [10, 20, 30]\n")
	stmts, err := compiler.Parse(toks)
	require.Nil(t, err)
	decl, ok := stmts.Body[0].(*compiler.VarDecl)
	require.True(t, ok)
	assert.Equal(t, "a", decl.Name)
	assert.Equal(t, "int", decl.Type)
	require.NotNil(t, decl.Length)
	lit, ok := decl.Init.(*compiler.ArrayLiteral)
	require.True(t, ok)
	assert.Len(t, lit.Elements, 3)
}

func TestParseForLoopXStyle(t *testing.T) {
	toks := lexOK(t, "var i: int = 0\nvar s: int = 0\nfor i start: 1 end: 10 step: 1 {\n  s = s + i\n}\n")
	stmts, err := compiler.Parse(toks)
	require.Nil(t, err)
	require.Len(t, stmts.Body, 3)
	_, ok := stmts.Body[2].(*compiler.ForLoop)
	assert.True(t, ok)
}

func TestParseCStyleForLoop(t *testing.T) {
	toks := lexOK(t, "var i: int = 0\nfor (i = 0; i < 10; i += 1) {\n  i = i\n}\n")
	stmts, err := compiler.Parse(toks)
	require.Nil(t, err)
	_, ok := stmts.Body[1].(*compiler.CForLoop)
	assert.True(t, ok)
}

func TestParseIfElseIfElse(t *testing.T) {
	toks := lexOK(t, "var x: int = 7\nif x > 5 {\n  x = 1\n} elseif x < 0 {\n  x = 2\n} else {\n  x = 0\n}\n")
	stmts, err := compiler.Parse(toks)
	require.Nil(t, err)
	ifst, ok := stmts.Body[1].(*compiler.IfStatement)
	require.True(t, ok)
	assert.Len(t, ifst.Cases, 2)
	assert.NotNil(t, ifst.Else)
}

func TestParseSubroutineAndCall(t *testing.T) {
	toks := lexOK(t, "sub add(a, b) {\n  a = a + b\n}\nadd(1, 2)\n")
	stmts, err := compiler.Parse(toks)
	require.Nil(t, err)
	sub, ok := stmts.Body[0].(*compiler.SubroutineDef)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, sub.Params)
	call, ok := stmts.Body[1].(*compiler.CallExpression)
	require.True(t, ok)
	assert.Equal(t, "add", call.Name)
}

func TestParsePrecedenceClimbing(t *testing.T) {
	toks := lexOK(t, "include operations\nconst x 3 + 4 * 5\n")
	stmts, err := compiler.Parse(toks)
	require.Nil(t, err)
	def := stmts.Body[0].(*compiler.ConstDef)
	bin, ok := def.Expr.(*compiler.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, lexer.TokenAdd, bin.Op.Type)
	rhs, ok := bin.Right.(*compiler.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, lexer.TokenMul, rhs.Op.Type)
}

func TestParseArraySet(t *testing.T) {
	toks := lexOK(t, "var a: int[3] = [1, 2, 3]\na[1] = 9\n")
	stmts, err := compiler.Parse(toks)
	require.Nil(t, err)
	set, ok := stmts.Body[1].(*compiler.ArraySet)
	require.True(t, ok)
	ident, ok := set.Array.(*compiler.Identifier)
	require.True(t, ok)
	assert.Equal(t, "a", ident.Name)
}

func TestParseUnaryAddressOfRequiresIdentifier(t *testing.T) {
	toks := lexOK(t, "var x: int = 1\nconst y @x\n")
	_, err := compiler.Parse(toks)
	assert.Nil(t, err)

	toks = lexOK(t, "const y @5\n")
	_, err = compiler.Parse(toks)
	require.NotNil(t, err)
	assert.Equal(t, lexer.ErrInvalidSyntax, err.Kind)
}

func TestParseInvalidSyntaxReportsError(t *testing.T) {
	toks := lexOK(t, "const x\n")
	_, err := compiler.Parse(toks)
	require.NotNil(t, err)
	assert.Equal(t, lexer.ErrInvalidSyntax, err.Kind)
}
