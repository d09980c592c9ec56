package compiler

import (
	"strconv"
	"strings"

	"github.com/lookbusy1344/xenon-toolchain/lexer"
)

// genExpr compiles an expression node, emitting code that leaves its value
// in D, and additionally returns the compile-time value when the
// expression folds to a constant so callers higher in the tree (and
// call sites like for-loop bounds) can keep folding.
func (c *Environment) genExpr(node Node) (int, bool, *lexer.Error) {
	switch n := node.(type) {
	case *IntLiteral:
		c.loadImmediate(n.Value)
		return n.Value, true, nil

	case *Identifier:
		if v, ok := c.constants[n.Name]; ok {
			c.loadImmediate(v)
			return v, true, nil
		}
		if addr, ok := c.variables[n.Name]; ok {
			c.loadVariable(n.Name, addr)
			return 0, false, nil
		}
		return 0, false, lexer.NewCompileError(n.Pos().Start, n.Pos().End, 8, "undefined symbol '"+n.Name+"'")

	case *ArrayAccess:
		return c.genArrayAccess(n)

	case *ArrayLiteral:
		return 0, false, lexer.NewCompileError(n.Pos().Start, n.Pos().End, 1, "an array literal is not a value in this position")

	case *CallExpression:
		return c.genCall(n)

	case *BinaryOp:
		return c.genBinaryOp(n)

	case *UnaryOp:
		return c.genUnaryOp(n)

	case *Assignment:
		return 0, false, c.genAssignment(n)
	}

	return 0, false, lexer.NewCompileError(node.Pos().Start, node.Pos().End, 1, "unknown AST node")
}

var foldOps = map[lexer.TokenType]func(l, r int) int{
	lexer.TokenAdd: func(l, r int) int { return wrap16(l + r) },
	lexer.TokenSub: func(l, r int) int { return wrap16(l - r) },
	lexer.TokenAnd: func(l, r int) int { return wrap16(l & r) },
	lexer.TokenOr:  func(l, r int) int { return wrap16(l | r) },
	lexer.TokenXor: func(l, r int) int { return wrap16(l ^ r) },
	lexer.TokenMul: func(l, r int) int { return wrap16(l * r) },
}

var aluMnemonic = map[lexer.TokenType]string{
	lexer.TokenAdd: "D+M",
	lexer.TokenSub: "D-M",
	lexer.TokenAnd: "D&M",
	lexer.TokenOr:  "D|M",
	lexer.TokenXor: "D^M",
}

// notVariant maps an ALU mnemonic to its bitwise-negated form, restricted to
// the pairs the assembler's code table actually defines (D/A/M and the
// three bitwise combinators &, |, ^ against A or M) — arithmetic mnemonics like D+M have no !()
// table entry, so they fall back to a plain COMP !D D in the caller.
var notVariant = map[string]string{
	"D":     "!D",
	"A":     "!A",
	"M":     "!M",
	"D&A":   "!(D&A)",
	"D&M":   "!(D&M)",
	"D|A":   "!(D|A)",
	"D|M":   "!(D|M)",
	"D^A":   "!(D^A)",
	"D^M":   "!(D^M)",
}

var cmpJump = map[lexer.TokenType]string{
	lexer.TokenLt: "JLT",
	lexer.TokenLe: "JLE",
	lexer.TokenEq: "JEQ",
	lexer.TokenNe: "JNE",
	lexer.TokenGt: "JGT",
	lexer.TokenGe: "JGE",
}

func boolToWrapped(v bool) int {
	if v {
		return -1
	}
	return 0
}

func foldCompare(op lexer.TokenType, l, r int) int {
	switch op {
	case lexer.TokenLt:
		return boolToWrapped(l < r)
	case lexer.TokenLe:
		return boolToWrapped(l <= r)
	case lexer.TokenEq:
		return boolToWrapped(l == r)
	case lexer.TokenNe:
		return boolToWrapped(l != r)
	case lexer.TokenGt:
		return boolToWrapped(l > r)
	case lexer.TokenGe:
		return boolToWrapped(l >= r)
	}
	return 0
}

func (c *Environment) genBinaryOp(n *BinaryOp) (int, bool, *lexer.Error) {
	if _, isCmp := cmpJump[n.Op.Type]; isCmp {
		return c.genComparison(n)
	}
	switch n.Op.Type {
	case lexer.TokenLShift, lexer.TokenRShift:
		return c.genShift(n)
	case lexer.TokenMul:
		return c.genMultiply(n)
	case lexer.TokenDiv:
		return c.genDivide(n)
	}

	// id + 1 / id - 1 special case.
	if ident, ok := n.Left.(*Identifier); ok {
		if lit, ok := n.Right.(*IntLiteral); ok && lit.Value == 1 {
			if addr, ok := c.variables[ident.Name]; ok {
				if n.Op.Type == lexer.TokenAdd {
					c.emit("LDIA " + strconv.Itoa(addr) + " // " + ident.Name)
					c.emit("COMP M++ D")
					c.aReg, c.aKnown = addr, true
					return 0, false, nil
				}
				if n.Op.Type == lexer.TokenSub {
					c.emit("LDIA " + strconv.Itoa(addr) + " // " + ident.Name)
					c.emit("COMP M-- D")
					c.aReg, c.aKnown = addr, true
					return 0, false, nil
				}
			}
		}
	}

	mnemonic, ok := aluMnemonic[n.Op.Type]
	if !ok {
		return 0, false, lexer.NewCompileError(n.Pos().Start, n.Pos().End, 2, "unsupported binary operation '"+n.Op.Type.String()+"'")
	}

	start := len(c.instructions)
	leftVal, leftOK, err := c.genExpr(n.Left)
	if err != nil {
		return 0, false, err
	}
	reg1, rerr := c.allocateRegister(n.Pos())
	if rerr != nil {
		return 0, false, rerr
	}
	rightVal, rightOK, err := c.genExpr(n.Right)
	if err != nil {
		return 0, false, err
	}
	reg2, rerr := c.allocateRegister(n.Pos())
	if rerr != nil {
		return 0, false, rerr
	}

	if leftOK && rightOK {
		fold := foldOps[n.Op.Type]
		result := fold(leftVal, rightVal)
		c.instructions = c.instructions[:start]
		c.freeRegister(reg1)
		c.freeRegister(reg2)
		c.loadImmediate(result)
		return result, true, nil
	}

	c.emit("LDIA r" + strconv.Itoa(reg1))
	c.emit("COMP M D")
	c.emit("LDIA r" + strconv.Itoa(reg2))
	c.emit("COMP " + mnemonic + " D")
	c.aReg, c.aKnown = reg2, true
	c.freeRegister(reg1)
	c.freeRegister(reg2)
	return 0, false, nil
}

func (c *Environment) genComparison(n *BinaryOp) (int, bool, *lexer.Error) {
	start := len(c.instructions)
	leftVal, leftOK, err := c.genExpr(n.Left)
	if err != nil {
		return 0, false, err
	}
	reg, rerr := c.allocateRegister(n.Pos())
	if rerr != nil {
		return 0, false, rerr
	}
	rightVal, rightOK, err := c.genExpr(n.Right)
	if err != nil {
		return 0, false, err
	}

	if leftOK && rightOK {
		result := foldCompare(n.Op.Type, leftVal, rightVal)
		c.instructions = c.instructions[:start]
		c.freeRegister(reg)
		c.loadImmediate(result)
		return result, true, nil
	}

	id := c.jumps
	c.jumps++
	trueLabel := ".true" + strconv.Itoa(id)
	falseLabel := ".false" + strconv.Itoa(id)

	c.emit("LDIA r" + strconv.Itoa(reg))
	c.emit("COMP M-D D")
	c.freeRegister(reg)

	c.emit("LDIA " + trueLabel)
	c.emit("COMP D " + cmpJump[n.Op.Type])
	c.emit("COMP 0 D")
	c.emit("LDIA " + falseLabel)
	c.emit("COMP 0 JMP")
	c.emitLabel(trueLabel)
	c.emit("COMP -1 D")
	c.emitLabel(falseLabel)
	c.aKnown = false
	return 0, false, nil
}

// genShift implements << and >> as a decrement-and-loop over the ALU's
// single-bit shift, shortcutting the common shift-by-0/shift-by-1 cases.
func (c *Environment) genShift(n *BinaryOp) (int, bool, *lexer.Error) {
	leftConst, leftOK := c.constOrLiteral(n.Left)
	rightVal, rightOK := c.constOrLiteral(n.Right)
	if leftOK && rightOK {
		var result int
		if n.Op.Type == lexer.TokenLShift {
			result = wrap16(leftConst << uint(rightVal&0xF))
		} else {
			result = wrap16(leftConst >> uint(rightVal&0xF))
		}
		c.loadImmediate(result)
		return result, true, nil
	}

	left := n.Op.Type == lexer.TokenLShift

	if _, _, err := c.genExpr(n.Left); err != nil {
		return 0, false, err
	}
	leftReg, rerr := c.allocateRegister(n.Pos())
	if rerr != nil {
		return 0, false, rerr
	}

	if rightOK && rightVal <= 0 {
		c.emit("LDIA r" + strconv.Itoa(leftReg))
		c.emit("COMP M D")
		c.aReg, c.aKnown = leftReg, true
		c.freeRegister(leftReg)
		return 0, false, nil
	}
	if rightOK && rightVal == 1 {
		// D still holds the left operand after the spill.
		c.emit("LDIA r" + strconv.Itoa(leftReg))
		if left {
			c.emit("COMP D+M D")
		} else {
			c.emit("COMP >>M D")
		}
		c.aReg, c.aKnown = leftReg, true
		c.freeRegister(leftReg)
		return 0, false, nil
	}

	if rightOK {
		c.loadImmediate(rightVal)
	} else if _, _, err := c.genExpr(n.Right); err != nil {
		return 0, false, err
	}
	countReg, rerr := c.allocateRegister(n.Pos())
	if rerr != nil {
		return 0, false, rerr
	}

	id := c.makeJumpLabel("shift")
	c.emit("LDIA r" + strconv.Itoa(countReg))
	c.emit("COMP M D")
	c.emit("LDIA .endshift" + strconv.Itoa(id))
	c.emit("COMP D JLE")
	c.emit("LDIA r" + strconv.Itoa(leftReg))
	if left {
		c.emit("COMP M D")
		c.emit("COMP D+M M")
	} else {
		c.emit("COMP >>M M")
	}
	c.emit("LDIA r" + strconv.Itoa(countReg))
	c.emit("COMP M-- M")
	c.emit("LDIA .shift" + strconv.Itoa(id))
	c.emit("COMP 0 JMP")
	c.emitLabel(".endshift" + strconv.Itoa(id))
	c.emit("LDIA r" + strconv.Itoa(leftReg))
	c.emit("COMP M D")

	c.freeRegister(countReg)
	c.freeRegister(leftReg)
	c.aKnown = false
	return 0, false, nil
}

// genMultiply implements `*` via 16-iteration shift-and-add: product and
// a bit counter in scratch registers, multiplicand shifted right each
// iteration, multiplier shifted left, LSB tested by ANDing against a
// literal 1 held in A.
func (c *Environment) genMultiply(n *BinaryOp) (int, bool, *lexer.Error) {
	leftVal, leftOK := c.constOrLiteral(n.Left)
	rightVal, rightOK := c.constOrLiteral(n.Right)
	if leftOK && rightOK {
		result := wrap16(leftVal * rightVal)
		c.loadImmediate(result)
		return result, true, nil
	}

	if _, _, err := c.genExpr(n.Right); err != nil {
		return 0, false, err
	}
	multiplicand, rerr := c.allocateRegister(n.Pos())
	if rerr != nil {
		return 0, false, rerr
	}

	if _, _, err := c.genExpr(n.Left); err != nil {
		return 0, false, err
	}
	multiplier, rerr := c.allocateRegister(n.Pos())
	if rerr != nil {
		return 0, false, rerr
	}

	c.emit("COMP 0 D")
	product, rerr := c.allocateRegister(n.Pos())
	if rerr != nil {
		return 0, false, rerr
	}

	c.loadImmediate(16)
	counter, rerr := c.allocateRegister(n.Pos())
	if rerr != nil {
		return 0, false, rerr
	}

	id := c.makeJumpLabel("mul")
	c.emit("LDIA r" + strconv.Itoa(counter))
	c.emit("COMP M D")
	c.emit("LDIA .endmul" + strconv.Itoa(id))
	c.emit("COMP D JLE")

	c.emit("LDIA r" + strconv.Itoa(multiplicand))
	c.emit("COMP M D")
	c.emit("LDIA 1")
	c.emit("COMP D&A D") // test LSB of multiplicand
	c.emit("LDIA .mulskip" + strconv.Itoa(id))
	c.emit("COMP D JEQ")

	c.emit("LDIA r" + strconv.Itoa(multiplier))
	c.emit("COMP M D")
	c.emit("LDIA r" + strconv.Itoa(product))
	c.emit("COMP D+M M")

	c.emitLabel(".mulskip" + strconv.Itoa(id))
	c.emit("LDIA r" + strconv.Itoa(multiplier))
	c.emit("COMP M D")
	c.emit("COMP D+M M") // multiplier <<= 1
	c.emit("LDIA r" + strconv.Itoa(multiplicand))
	c.emit("COMP >>M M") // multiplicand >>= 1
	c.emit("LDIA r" + strconv.Itoa(counter))
	c.emit("COMP M-- M")
	c.emit("LDIA .mul" + strconv.Itoa(id))
	c.emit("COMP 0 JMP")
	c.emitLabel(".endmul" + strconv.Itoa(id))

	c.emit("LDIA r" + strconv.Itoa(product))
	c.emit("COMP M D")

	c.freeRegister(counter)
	c.freeRegister(product)
	c.freeRegister(multiplier)
	c.freeRegister(multiplicand)
	c.aKnown = false
	return 0, false, nil
}

// genDivide implements `/` as repeated subtraction with a quotient
// counter, the subtractive sibling of the multiply loop.
func (c *Environment) genDivide(n *BinaryOp) (int, bool, *lexer.Error) {
	leftVal, leftOK := c.constOrLiteral(n.Left)
	rightVal, rightOK := c.constOrLiteral(n.Right)
	if leftOK && rightOK && rightVal != 0 {
		result := wrap16(leftVal / rightVal)
		c.loadImmediate(result)
		return result, true, nil
	}

	if _, _, err := c.genExpr(n.Left); err != nil {
		return 0, false, err
	}
	dividend, rerr := c.allocateRegister(n.Pos())
	if rerr != nil {
		return 0, false, rerr
	}

	if _, _, err := c.genExpr(n.Right); err != nil {
		return 0, false, err
	}
	divisor, rerr := c.allocateRegister(n.Pos())
	if rerr != nil {
		return 0, false, rerr
	}

	c.emit("COMP 0 D")
	quotient, rerr := c.allocateRegister(n.Pos())
	if rerr != nil {
		return 0, false, rerr
	}

	id := c.makeJumpLabel("div")
	c.emit("LDIA r" + strconv.Itoa(divisor))
	c.emit("COMP M D")
	c.emit("LDIA r" + strconv.Itoa(dividend))
	c.emit("COMP M-D D")
	c.emit("LDIA .enddiv" + strconv.Itoa(id))
	c.emit("COMP D JLT")

	c.emit("LDIA r" + strconv.Itoa(divisor))
	c.emit("COMP M D")
	c.emit("LDIA r" + strconv.Itoa(dividend))
	c.emit("COMP M-D M")
	c.emit("LDIA r" + strconv.Itoa(quotient))
	c.emit("COMP M++ M")
	c.emit("LDIA .div" + strconv.Itoa(id))
	c.emit("COMP 0 JMP")
	c.emitLabel(".enddiv" + strconv.Itoa(id))

	c.emit("LDIA r" + strconv.Itoa(quotient))
	c.emit("COMP M D")

	c.freeRegister(quotient)
	c.freeRegister(divisor)
	c.freeRegister(dividend)
	c.aKnown = false
	return 0, false, nil
}

func (c *Environment) genUnaryOp(n *UnaryOp) (int, bool, *lexer.Error) {
	if n.Op.Type == lexer.TokenAt {
		ident, ok := n.Operand.(*Identifier)
		if !ok {
			return 0, false, lexer.NewCompileError(n.Pos().Start, n.Pos().End, 4, "'@' requires an identifier")
		}
		addr, ok := c.variables[ident.Name]
		if !ok {
			return 0, false, lexer.NewCompileError(ident.Pos().Start, ident.Pos().End, 4, "undefined variable '"+ident.Name+"' in '@'")
		}
		c.emit("LDIA " + strconv.Itoa(addr))
		c.emit("COMP A D")
		c.aReg, c.aKnown = addr, true
		return 0, false, nil
	}

	if n.Op.Type == lexer.TokenAdd {
		return c.genExpr(n.Operand)
	}

	if n.Op.Type == lexer.TokenSub {
		start := len(c.instructions)
		value, folded, err := c.genExpr(n.Operand)
		if err != nil {
			return 0, false, err
		}
		if folded {
			c.instructions = c.instructions[:start]
			result := wrap16(-value)
			c.loadImmediate(result)
			return result, true, nil
		}
		c.emit("COMP -D D")
		return 0, false, nil
	}

	if n.Op.Type == lexer.TokenAbs {
		start := len(c.instructions)
		value, folded, err := c.genExpr(n.Operand)
		if err != nil {
			return 0, false, err
		}
		if folded {
			c.instructions = c.instructions[:start]
			result := value
			if result < 0 {
				result = -result
			}
			result = wrap16(result)
			c.loadImmediate(result)
			return result, true, nil
		}
		id := c.jumps
		c.jumps++
		label := ".abs" + strconv.Itoa(id)
		c.emit("LDIA " + label)
		c.emit("COMP D JGE")
		c.emit("COMP -D D")
		c.emitLabel(label)
		return 0, false, nil
	}

	if n.Op.Type == lexer.TokenSign {
		start := len(c.instructions)
		value, folded, err := c.genExpr(n.Operand)
		if err != nil {
			return 0, false, err
		}
		if folded {
			c.instructions = c.instructions[:start]
			result := 0
			if value < 0 {
				result = -1
			} else if value > 0 {
				result = 1
			}
			c.loadImmediate(result)
			return result, true, nil
		}
		id := c.jumps
		c.jumps++
		negLabel, posLabel, endLabel := ".signneg"+strconv.Itoa(id), ".signpos"+strconv.Itoa(id), ".signend"+strconv.Itoa(id)
		c.emit("LDIA " + negLabel)
		c.emit("COMP D JLT")
		c.emit("LDIA " + posLabel)
		c.emit("COMP D JGT")
		c.emit("COMP 0 D")
		c.emit("LDIA " + endLabel)
		c.emit("COMP 0 JMP")
		c.emitLabel(negLabel)
		c.emit("COMP -1 D")
		c.emit("LDIA " + endLabel)
		c.emit("COMP 0 JMP")
		c.emitLabel(posLabel)
		c.emit("COMP 1 D")
		c.emitLabel(endLabel)
		return 0, false, nil
	}

	// Prefix/postfix ++ / --, and ~.
	start := len(c.instructions)
	value, folded, err := c.genExpr(n.Operand)
	if err != nil {
		return 0, false, err
	}

	switch n.Op.Type {
	case lexer.TokenNot:
		if folded {
			c.instructions = c.instructions[:start]
			result := wrap16(^value)
			c.loadImmediate(result)
			return result, true, nil
		}
		last := c.last()
		if strings.HasPrefix(last, "COMP ") && strings.HasSuffix(last, " D") {
			op := strings.TrimSuffix(strings.TrimPrefix(last, "COMP "), " D")
			if negated, ok := notVariant[op]; ok {
				c.instructions[len(c.instructions)-1] = "COMP " + negated + " D"
			} else {
				c.emit("COMP !D D")
			}
		} else {
			c.emit("COMP !D D")
		}
		return 0, false, nil

	case lexer.TokenInc:
		if folded {
			c.instructions = c.instructions[:start]
			result := wrap16(value + 1)
			c.loadImmediate(result)
			return result, true, nil
		}
		c.emit("COMP D++ D")
		return 0, false, nil

	case lexer.TokenDec:
		if folded {
			c.instructions = c.instructions[:start]
			result := wrap16(value - 1)
			c.loadImmediate(result)
			return result, true, nil
		}
		c.emit("COMP D-- D")
		return 0, false, nil
	}

	return 0, false, lexer.NewCompileError(n.Pos().Start, n.Pos().End, 5, "unsupported unary operation '"+n.Op.Type.String()+"'")
}
