package compiler_test

import (
	"strings"
	"testing"

	"github.com/lookbusy1344/xenon-toolchain/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileTop(t *testing.T, src string) []string {
	t.Helper()
	toks := lexOK(t, src)
	ast, perr := compiler.Parse(toks)
	require.Nil(t, perr)
	instrs, cerr := compiler.Compile(ast, true)
	require.Nil(t, cerr)
	return instrs
}

func TestCompileMultiplyFoldsConstants(t *testing.T) {
	instrs := compileTop(t, "include operations\nconst x 6 * 7\n")
	assert.Contains(t, instrs, "LDIA 42")
	for _, line := range instrs {
		assert.NotContains(t, line, ".mul")
	}
}

func TestCompileDivideFoldsConstants(t *testing.T) {
	instrs := compileTop(t, "include operations\nconst x 20 / 4\n")
	assert.Contains(t, instrs, "LDIA 5")
}

func TestCompileShiftFoldsBothConstants(t *testing.T) {
	instrs := compileTop(t, "const x 1 << 3\n")
	assert.Contains(t, instrs, "LDIA 8")
	for _, line := range instrs {
		assert.NotContains(t, line, ".shift")
	}
}

func TestCompileShiftByVariableStillLoops(t *testing.T) {
	instrs := compileTop(t, "var n: int = 3\nvar r: int = (4 << n)\n")
	found := false
	for _, line := range instrs {
		if strings.Contains(line, ".shift") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCompileArraySetGet(t *testing.T) {
	instrs := compileTop(t, "var a: int[3] = [10, 20, 30]\nvar y: int = a[2]\n")
	assert.Contains(t, instrs, "HALT")
	joined := strings.Join(instrs, "\n")
	assert.Contains(t, joined, "COMP D+A D")
}

func TestCompilePlotEmitsBufrUpdateWhenNoFlip(t *testing.T) {
	instrs := compileTop(t, "plot(3, 4, 1)\nplot(5, 4, 1)\n")
	assert.Contains(t, instrs, "PLOT 1")
	assert.Contains(t, instrs, "BUFR update")
}

func TestCompileFlipSkipsImplicitUpdate(t *testing.T) {
	instrs := compileTop(t, "plot(3, 4, 1)\nflip()\n")
	assert.Contains(t, instrs, "BUFR move")
	count := 0
	for _, l := range instrs {
		if l == "BUFR update" {
			count++
		}
	}
	assert.Equal(t, 0, count)
}

func TestCompileUndefinedVariableErrors(t *testing.T) {
	toks := lexOK(t, "x = 5\n")
	ast, perr := compiler.Parse(toks)
	require.Nil(t, perr)
	_, cerr := compiler.Compile(ast, true)
	require.NotNil(t, cerr)
	assert.Equal(t, 13, cerr.Code)
}

func TestCompileBuiltinConstants(t *testing.T) {
	instrs := compileTop(t, "const a true\nconst b false\nconst c N_BITS\n")
	assert.Contains(t, instrs, "COMP -1 D")
	assert.Contains(t, instrs, "COMP 0 D")
	assert.Contains(t, instrs, "LDIA 16")
}

func TestCompileKnownValueNegativeTwo(t *testing.T) {
	instrs := compileTop(t, "var x: int = -2\n")
	assert.Contains(t, instrs, "COMP -2 D")
}

func TestCompileArrayIndexOutOfBounds(t *testing.T) {
	toks := lexOK(t, "var a: int[3] = [1, 2, 3]\nvar y: int = a[3]\n")
	ast, perr := compiler.Parse(toks)
	require.Nil(t, perr)
	_, cerr := compiler.Compile(ast, true)
	require.NotNil(t, cerr)
	assert.Equal(t, 17, cerr.Code)
}

func TestCompileIndexingScalarErrors(t *testing.T) {
	toks := lexOK(t, "var x: int = 1\nvar y: int = x[0]\n")
	ast, perr := compiler.Parse(toks)
	require.Nil(t, perr)
	_, cerr := compiler.Compile(ast, true)
	require.NotNil(t, cerr)
	assert.Equal(t, 15, cerr.Code)
}

func TestCompileForLoopDeclaresIterator(t *testing.T) {
	instrs := compileTop(t, "var s: int = 0\nfor i start: 1 end: 3 step: 1 {\n  s = s + i\n}\n")
	assert.Contains(t, instrs, ".for0")
}

func TestCompileForLoopIteratorCannotBeConst(t *testing.T) {
	toks := lexOK(t, "const i 1\nfor i start: 1 end: 3 step: 1 {\n  i = i\n}\n")
	ast, perr := compiler.Parse(toks)
	require.Nil(t, perr)
	_, cerr := compiler.Compile(ast, true)
	require.NotNil(t, cerr)
	assert.Equal(t, 14, cerr.Code)
}

func TestCompileNestedSubroutineCallRejected(t *testing.T) {
	toks := lexOK(t, "sub inner(a) {\n  a = a\n}\nsub outer(b) {\n  inner(b)\n}\nouter(1)\n")
	ast, perr := compiler.Parse(toks)
	require.Nil(t, perr)
	_, cerr := compiler.Compile(ast, true)
	require.NotNil(t, cerr)
}

func TestCompileSubroutineArgumentCountMismatch(t *testing.T) {
	toks := lexOK(t, "sub f(a, b) {\n  a = b\n}\nf(1)\n")
	ast, perr := compiler.Parse(toks)
	require.Nil(t, perr)
	_, cerr := compiler.Compile(ast, true)
	require.NotNil(t, cerr)
	assert.Equal(t, 19, cerr.Code)
}

func TestCompilePlotValueMustBeLiteralBit(t *testing.T) {
	toks := lexOK(t, "plot(1, 1, 2)\n")
	ast, perr := compiler.Parse(toks)
	require.Nil(t, perr)
	_, cerr := compiler.Compile(ast, true)
	require.NotNil(t, cerr)
	assert.Equal(t, 20, cerr.Code)
}

func TestCompileConstReassignmentErrors(t *testing.T) {
	toks := lexOK(t, "const x 1\nx = 2\n")
	ast, perr := compiler.Parse(toks)
	require.Nil(t, perr)
	_, cerr := compiler.Compile(ast, true)
	require.NotNil(t, cerr)
	assert.Equal(t, 12, cerr.Code)
}
