package compiler

import (
	"testing"

	"github.com/lookbusy1344/xenon-toolchain/lexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileSrc(t *testing.T, src string) []string {
	t.Helper()
	toks, lerr := lexer.Lex("t.xs", src, mapSourceStub{}, true)
	require.Nil(t, lerr)
	ast, perr := Parse(toks)
	require.Nil(t, perr)
	instrs, cerr := Compile(ast, true)
	require.Nil(t, cerr)
	return instrs
}

type mapSourceStub struct{}

func (mapSourceStub) Read(name string) (string, bool) { return "", false }

func TestConstFoldLeavesRuntimeCode(t *testing.T) {
	toks, lerr := lexer.Lex("t.xs", "include operations\nconst x 3 + 4 * 5\n", mapSourceStub{}, true)
	require.Nil(t, lerr)
	ast, perr := Parse(toks)
	require.Nil(t, perr)
	instrs, cerr := Compile(ast, false)
	require.Nil(t, cerr)
	assert.Contains(t, instrs, "LDIA 23")
	assert.Contains(t, instrs, "COMP A D")
}

func TestHaltAppearsExactlyOnce(t *testing.T) {
	instrs := compileSrc(t, "var x: int = 1\n")
	count := 0
	for _, line := range instrs {
		if line == "HALT" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestPeepholeIdempotent(t *testing.T) {
	instrs := compileSrc(t, "var n: int = 5\nwhile n { n = n - 1 }\n")
	once := peepholeOptimize(instrs)
	twice := peepholeOptimize(once)
	assert.Equal(t, once, twice)
}

func TestPeepholeDropsConsecutiveLDIA(t *testing.T) {
	in := []string{"LDIA 5", "LDIA 6", "COMP A D"}
	out := peepholeOptimize(in)
	assert.Equal(t, []string{"LDIA 6", "COMP A D"}, out)
}

func TestPeepholeDropsDoubleNegation(t *testing.T) {
	in := []string{"COMP D M", "COMP -D D", "COMP -D D", "HALT"}
	out := peepholeOptimize(in)
	assert.Equal(t, []string{"COMP D M", "HALT"}, out)
}
