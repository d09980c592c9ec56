package compiler

import (
	"strconv"

	"github.com/lookbusy1344/xenon-toolchain/lexer"
)

// nativeSubs are the fixed-arity subroutines that bypass the generic
// user-subroutine call mechanism entirely.
var nativeSubs = map[string]int{
	"update": 0,
	"flip":   0,
	"halt":   0,
	"plot":   3,
}

func wrap16(v int) int {
	v %= 65536
	if v > 32767 {
		v -= 65536
	} else if v < -32768 {
		v += 65536
	}
	return v
}

// Compile walks ast and produces XAssembly text lines. removeTrailing
// drops a final bare "COMP A D" left over from an expression statement
// whose value nobody consumed.
func Compile(ast *Statements, removeTrailing bool) ([]string, *lexer.Error) {
	c := newEnvironment()

	for _, stmt := range ast.Body {
		if _, _, err := c.genStatement(stmt); err != nil {
			return nil, err
		}
	}

	if removeTrailing && len(c.instructions) > 0 && c.instructions[len(c.instructions)-1] == "COMP A D" {
		c.instructions = c.instructions[:len(c.instructions)-1]
	}

	if c.sawPlot && !c.sawBufrCall {
		c.emit("BUFR update")
	}
	c.emit("HALT")

	// Subroutine bodies may define further subroutines, growing the
	// pending list while it is being drained.
	for i := 0; i < len(c.pendingSubs); i++ {
		sub := c.pendingSubs[i]
		c.emitLabel(".sub_" + sub.Name)
		c.currentSub = sub.Name
		if _, _, err := c.genStatement(sub.Body); err != nil {
			return nil, err
		}
		c.currentSub = ""
		c.emit("RETN")
	}

	return peepholeOptimize(c.instructions), nil
}

// genStatement compiles a statement-position node. Most return no usable
// value; expression-statements return whatever genExpr produced.
func (c *Environment) genStatement(node Node) (int, bool, *lexer.Error) {
	switch n := node.(type) {
	case *Statements:
		for _, stmt := range n.Body {
			if _, _, err := c.genStatement(stmt); err != nil {
				return 0, false, err
			}
		}
		return 0, false, nil

	case *ConstDef:
		return 0, false, c.genConstDef(n)
	case *VarDecl:
		return 0, false, c.genVarDecl(n)
	case *Assignment:
		return 0, false, c.genAssignment(n)
	case *ForLoop:
		return 0, false, c.genForLoop(n)
	case *CForLoop:
		return 0, false, c.genCForLoop(n)
	case *WhileLoop:
		return 0, false, c.genWhileLoop(n)
	case *IfStatement:
		return 0, false, c.genIfStatement(n)
	case *SubroutineDef:
		return 0, false, c.genSubroutineDef(n)
	case *ArraySet:
		return 0, false, c.genArraySet(n)

	default:
		return c.genExpr(node)
	}
}

func (c *Environment) genConstDef(n *ConstDef) *lexer.Error {
	if c.defined(n.Name) {
		return lexer.NewCompileError(n.Pos().Start, n.Pos().End, 9, "symbol '"+n.Name+"' is already defined")
	}
	value, folded, err := c.genExpr(n.Expr)
	if err != nil {
		return err
	}
	if !folded {
		return lexer.NewCompileError(n.Expr.Pos().Start, n.Expr.Pos().End, 21, "expected a compile-time constant")
	}
	c.constants[n.Name] = value
	return nil
}

func (c *Environment) genVarDecl(n *VarDecl) *lexer.Error {
	if c.defined(n.Name) {
		return lexer.NewCompileError(n.Pos().Start, n.Pos().End, 10, "symbol '"+n.Name+"' is already defined")
	}

	length := 1
	isArray := false
	if n.Length != nil {
		isArray = true
		switch ln := n.Length.(type) {
		case *IntLiteral:
			length = ln.Value
		case *Identifier:
			v, ok := c.constants[ln.Name]
			if !ok {
				return lexer.NewCompileError(ln.Pos().Start, ln.Pos().End, 21, "array length must be a constant")
			}
			length = v
		}
	}

	if arr, ok := n.Init.(*ArrayLiteral); ok {
		if isArray && len(arr.Elements) != length {
			return lexer.NewCompileError(n.Init.Pos().Start, n.Init.Pos().End, 11, "array length mismatch")
		}
		isArray = true
		length = len(arr.Elements)
	}

	base := 16 + c.vars
	c.variables[n.Name] = base
	if isArray {
		c.arrays[n.Name] = length
	}
	c.vars += length

	if arr, ok := n.Init.(*ArrayLiteral); ok {
		for i, elem := range arr.Elements {
			_, _, err := c.genExpr(elem)
			if err != nil {
				return err
			}
			addr := base + i
			c.emit("LDIA " + strconv.Itoa(addr) + " // " + n.Name + "[" + strconv.Itoa(i) + "]")
			c.emit("COMP D M")
			c.aReg = addr
			c.aKnown = true
		}
		return nil
	}

	if n.Init != nil {
		if _, _, err := c.genExpr(n.Init); err != nil {
			return err
		}
		c.emit("LDIA " + strconv.Itoa(base) + " // " + n.Name)
		c.emit("COMP D M")
		c.aReg = base
		c.aKnown = true
	}
	return nil
}

func (c *Environment) genAssignment(n *Assignment) *lexer.Error {
	if _, ok := c.constants[n.Target.Name]; ok {
		return lexer.NewCompileError(n.Pos().Start, n.Pos().End, 12, "cannot assign to constant '"+n.Target.Name+"'")
	}
	addr, ok := c.variables[n.Target.Name]
	if !ok {
		return lexer.NewCompileError(n.Target.Pos().Start, n.Target.Pos().End, 13, "undefined variable '"+n.Target.Name+"'")
	}
	if _, _, err := c.genExpr(n.Expr); err != nil {
		return err
	}
	c.emit("LDIA " + strconv.Itoa(addr) + " // " + n.Target.Name)
	c.emit("COMP D M")
	c.aReg = addr
	c.aKnown = true
	return nil
}

func (c *Environment) constOrLiteral(node Node) (int, bool) {
	switch n := node.(type) {
	case *IntLiteral:
		return n.Value, true
	case *Identifier:
		v, ok := c.constants[n.Name]
		return v, ok
	}
	return 0, false
}

// loopIterator resolves a for loop's iterator to its memory cell,
// declaring a fresh variable when the name is unbound so `for i start: ...`
// works without a prior `var i`.
func (c *Environment) loopIterator(name string, span lexer.Span) (int, *lexer.Error) {
	if addr, ok := c.variables[name]; ok {
		return addr, nil
	}
	if c.defined(name) {
		return 0, lexer.NewCompileError(span.Start, span.End, 14, "for loop iterator '"+name+"' is not a variable")
	}
	addr := 16 + c.vars
	c.variables[name] = addr
	c.vars++
	return addr, nil
}

func (c *Environment) genForLoop(n *ForLoop) *lexer.Error {
	addr, err := c.loopIterator(n.Iterator, n.Pos())
	if err != nil {
		return err
	}

	startVal, startOK := c.constOrLiteral(n.Start)
	stepVal, stepOK := c.constOrLiteral(n.Step)
	if u, ok := n.Step.(*UnaryOp); ok && u.Op.Type == lexer.TokenSub {
		if v, vok := c.constOrLiteral(u.Operand); vok {
			stepVal, stepOK = wrap16(-v), true
		}
	}

	if startOK {
		c.loadImmediate(startVal)
	} else if _, _, err := c.genExpr(n.Start); err != nil {
		return err
	}
	c.emit("LDIA " + strconv.Itoa(addr) + " // " + n.Iterator)
	c.emit("COMP D M")
	c.aReg = addr
	c.aKnown = true

	id := c.makeJumpLabel("for")

	if _, _, err := c.genStatement(n.Body); err != nil {
		return err
	}

	if stepOK {
		c.loadImmediate(stepVal)
	} else if _, _, err := c.genExpr(n.Step); err != nil {
		return err
	}
	c.emit("LDIA " + strconv.Itoa(addr))
	c.emit("COMP D+M D")
	c.emit("LDIA " + strconv.Itoa(addr))
	c.emit("COMP D M")
	c.aReg = addr
	c.aKnown = true

	if _, _, err := c.genExpr(n.End); err != nil {
		return err
	}
	c.emit("LDIA " + strconv.Itoa(addr))
	c.emit("COMP D-M D") // end - iterator

	jumpCond := "JGE"
	if stepOK && stepVal < 0 {
		jumpCond = "JLE"
	} else if !stepOK {
		jumpCond = "JNE"
	}
	c.emit("LDIA .for" + strconv.Itoa(id))
	c.emit("COMP D " + jumpCond)
	return nil
}

// cForJump picks the loop-back condition for a C-style for from its
// relational operator, applied to D = end - iterator.
func cForJump(endOp lexer.TokenType) string {
	switch endOp {
	case lexer.TokenLt:
		return "JGT"
	case lexer.TokenLe:
		return "JGE"
	case lexer.TokenGt:
		return "JLT"
	default: // Ge
		return "JLE"
	}
}

func (c *Environment) genCForLoop(n *CForLoop) *lexer.Error {
	addr, err := c.loopIterator(n.Iterator, n.Pos())
	if err != nil {
		return err
	}

	if _, _, err := c.genExpr(n.Start); err != nil {
		return err
	}
	c.emit("LDIA " + strconv.Itoa(addr) + " // " + n.Iterator)
	c.emit("COMP D M")
	c.aReg, c.aKnown = addr, true

	id := c.makeJumpLabel("cfor")

	if _, _, err := c.genStatement(n.Body); err != nil {
		return err
	}

	if _, _, err := c.genExpr(n.Step); err != nil {
		return err
	}
	c.emit("LDIA " + strconv.Itoa(addr))
	if n.StepOp == lexer.TokenSub {
		c.emit("COMP M-D D")
	} else {
		c.emit("COMP D+M D")
	}
	c.emit("LDIA " + strconv.Itoa(addr))
	c.emit("COMP D M")
	c.aReg, c.aKnown = addr, true

	if _, _, err := c.genExpr(n.End); err != nil {
		return err
	}
	c.emit("LDIA " + strconv.Itoa(addr))
	c.emit("COMP D-M D") // end - iterator
	c.emit("LDIA .cfor" + strconv.Itoa(id))
	c.emit("COMP D " + cForJump(n.EndOp))
	return nil
}

func (c *Environment) genWhileLoop(n *WhileLoop) *lexer.Error {
	id := c.makeJumpLabel("while")
	if _, _, err := c.genExpr(n.Cond); err != nil {
		return err
	}
	c.emit("LDIA .endwhile" + strconv.Itoa(id))
	c.emit("COMP D JLE")
	if _, _, err := c.genStatement(n.Body); err != nil {
		return err
	}
	c.emit("LDIA .while" + strconv.Itoa(id))
	c.emit("COMP 0 JMP")
	c.emitLabel(".endwhile" + strconv.Itoa(id))
	return nil
}

func (c *Environment) genIfStatement(n *IfStatement) *lexer.Error {
	endID := c.jumps
	c.jumps++
	endLabel := ".endif" + strconv.Itoa(endID)

	for i, ifCase := range n.Cases {
		nextLabel := endLabel
		last := i == len(n.Cases)-1 && n.Else == nil
		if !last {
			nextID := c.jumps
			c.jumps++
			nextLabel = ".ifnext" + strconv.Itoa(nextID)
		}

		if _, _, err := c.genExpr(ifCase.Cond); err != nil {
			return err
		}
		c.emit("LDIA " + nextLabel)
		c.emit("COMP D JEQ")
		if _, _, err := c.genStatement(ifCase.Body); err != nil {
			return err
		}
		c.emit("LDIA " + endLabel)
		c.emit("COMP 0 JMP")
		if nextLabel != endLabel {
			c.emitLabel(nextLabel)
		}
	}

	if n.Else != nil {
		if _, _, err := c.genStatement(n.Else); err != nil {
			return err
		}
	}
	c.emitLabel(endLabel)
	return nil
}

func (c *Environment) genSubroutineDef(n *SubroutineDef) *lexer.Error {
	if c.defined(n.Name) {
		return lexer.NewCompileError(n.Pos().Start, n.Pos().End, 9, "symbol '"+n.Name+"' is already defined")
	}
	info := subroutineInfo{infoCell: 16 + c.vars}
	c.vars++
	for range n.Params {
		info.paramAddrs = append(info.paramAddrs, 16+c.vars)
		c.vars++
	}
	c.subroutines[n.Name] = info
	for i, p := range n.Params {
		c.variables[p] = info.paramAddrs[i]
	}

	// The info cell holds the parameter count at runtime.
	c.loadImmediate(len(n.Params))
	c.emit("LDIA " + strconv.Itoa(info.infoCell) + " // sub " + n.Name)
	c.emit("COMP D M")
	c.aReg, c.aKnown = info.infoCell, true

	c.pendingSubs = append(c.pendingSubs, n)
	return nil
}

func (c *Environment) genArrayAccess(n *ArrayAccess) (int, bool, *lexer.Error) {
	ident, ok := n.Array.(*Identifier)
	if !ok {
		return 0, false, lexer.NewCompileError(n.Pos().Start, n.Pos().End, 15, "expected an array variable")
	}
	length, ok := c.arrays[ident.Name]
	if !ok {
		return 0, false, lexer.NewCompileError(ident.Pos().Start, ident.Pos().End, 15, "undefined array '"+ident.Name+"'")
	}
	base := c.variables[ident.Name]
	idx, idxKnown, err := c.genExpr(n.Index)
	if err != nil {
		return 0, false, err
	}
	if idxKnown && (idx < 0 || idx >= length) {
		return 0, false, lexer.NewCompileError(n.Index.Pos().Start, n.Index.Pos().End, 17, "array index "+strconv.Itoa(idx)+" out of bounds for '"+ident.Name+"'")
	}
	c.emit("LDIA " + strconv.Itoa(base))
	c.emit("COMP D+A D")
	addrReg, rerr := c.allocateRegister(n.Pos())
	if rerr != nil {
		return 0, false, rerr
	}
	c.emit("LDIA r" + strconv.Itoa(addrReg))
	c.emit("COMP M A")
	c.emit("COMP M D")
	c.freeRegister(addrReg)
	c.aKnown = false
	return 0, false, nil
}

func (c *Environment) genArraySet(n *ArraySet) *lexer.Error {
	ident, ok := n.Array.(*Identifier)
	if !ok {
		return lexer.NewCompileError(n.Pos().Start, n.Pos().End, 16, "expected an array variable")
	}
	length, ok := c.arrays[ident.Name]
	if !ok {
		return lexer.NewCompileError(ident.Pos().Start, ident.Pos().End, 16, "undefined array '"+ident.Name+"'")
	}
	base := c.variables[ident.Name]
	idx, idxKnown, err := c.genExpr(n.Index)
	if err != nil {
		return err
	}
	if idxKnown && (idx < 0 || idx >= length) {
		return lexer.NewCompileError(n.Index.Pos().Start, n.Index.Pos().End, 17, "array index "+strconv.Itoa(idx)+" out of bounds for '"+ident.Name+"'")
	}
	c.emit("LDIA " + strconv.Itoa(base))
	c.emit("COMP D+A D")
	addrReg, rerr := c.allocateRegister(n.Pos())
	if rerr != nil {
		return rerr
	}
	if _, _, err := c.genExpr(n.Value); err != nil {
		return err
	}
	c.emit("LDIA r" + strconv.Itoa(addrReg))
	c.emit("COMP M A")
	c.emit("COMP D M")
	c.freeRegister(addrReg)
	c.aKnown = false
	return nil
}

func (c *Environment) genCall(n *CallExpression) (int, bool, *lexer.Error) {
	if arity, ok := nativeSubs[n.Name]; ok {
		if len(n.Args) != arity {
			return 0, false, lexer.NewCompileError(n.Pos().Start, n.Pos().End, 19, "native sub '"+n.Name+"' expects "+strconv.Itoa(arity)+" argument(s)")
		}
		switch n.Name {
		case "update":
			c.emit("BUFR update")
			c.sawBufrCall = true
		case "flip":
			c.emit("BUFR move")
			c.sawBufrCall = true
		case "halt":
			c.emit("HALT")
		case "plot":
			if _, _, err := c.genExpr(n.Args[0]); err != nil {
				return 0, false, err
			}
			c.emit("LDIA 2048")
			c.emit("COMP D M")
			if _, _, err := c.genExpr(n.Args[1]); err != nil {
				return 0, false, err
			}
			c.emit("LDIA 2049")
			c.emit("COMP D M")
			v, folded := c.constOrLiteral(n.Args[2])
			if !folded || (v != 0 && v != 1) {
				return 0, false, lexer.NewCompileError(n.Args[2].Pos().Start, n.Args[2].Pos().End, 20, "plot value must be the literal 0 or 1")
			}
			c.emit("PLOT " + strconv.Itoa(v))
			c.sawPlot = true
		}
		return 0, false, nil
	}

	info, ok := c.subroutines[n.Name]
	if !ok {
		if c.defined(n.Name) {
			return 0, false, lexer.NewCompileError(n.Pos().Start, n.Pos().End, 18, "'"+n.Name+"' is not a subroutine")
		}
		return 0, false, lexer.NewCompileError(n.Pos().Start, n.Pos().End, 8, "undefined symbol '"+n.Name+"'")
	}
	if len(n.Args) != len(info.paramAddrs) {
		return 0, false, lexer.NewCompileError(n.Pos().Start, n.Pos().End, 19, "'"+n.Name+"' expects "+strconv.Itoa(len(info.paramAddrs))+" argument(s)")
	}
	if c.currentSub != "" {
		// Parameters live in fixed cells with no save/restore, so a call
		// from inside a subroutine body would clobber the caller's state.
		return 0, false, lexer.NewCompileError(n.Pos().Start, n.Pos().End, 18, "cannot call '"+n.Name+"' from inside '"+c.currentSub+"': nested subroutine calls are not supported")
	}
	for i, arg := range n.Args {
		if _, _, err := c.genExpr(arg); err != nil {
			return 0, false, err
		}
		c.emit("LDIA " + strconv.Itoa(info.paramAddrs[i]))
		c.emit("COMP D M")
		c.aReg, c.aKnown = info.paramAddrs[i], true
	}
	c.emit("CALL .sub_" + n.Name)
	c.aKnown = false
	return 0, false, nil
}
