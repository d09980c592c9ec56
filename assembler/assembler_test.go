package assembler_test

import (
	"testing"

	"github.com/lookbusy1344/xenon-toolchain/assembler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleNoopAndHalt(t *testing.T) {
	lines, err := assembler.Assemble("t.xasm", "NOOP\nHALT\n")
	require.Nil(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "0000000000000000", lines[0])
	assert.Equal(t, "0000000000000100", lines[1])
}

func TestAssembleBlankLineEmitsNoop(t *testing.T) {
	lines, err := assembler.Assemble("t.xasm", "NOOP\n\nHALT\n")
	require.Nil(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "0000000000000000", lines[1])
}

func TestAssembleLabelResolution(t *testing.T) {
	src := "LDIA .loop\n.loop\nCOMP 0 JMP\n"
	lines, err := assembler.Assemble("t.xasm", src)
	require.Nil(t, err)
	require.Len(t, lines, 2)
	assert.Regexp(t, "^[01]{16}$", lines[0])
	assert.Equal(t, "10", lines[0][14:])
	assert.Equal(t, 1, int(mustParseBin(t, lines[0][:14])))
	assert.Regexp(t, "^[01]{16}$", lines[1])
	assert.Equal(t, "11", lines[1][14:])
}

func TestAssembleRegisterShorthand(t *testing.T) {
	lines, err := assembler.Assemble("t.xasm", "LDIA r0\nLDIA r10\nLDIA r15\n")
	require.Nil(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, 0, int(mustParseBin(t, lines[0][:14])))
	assert.Equal(t, 10, int(mustParseBin(t, lines[1][:14])))
	assert.Equal(t, 15, int(mustParseBin(t, lines[2][:14])))
}

func TestAssembleNegativeImmediate(t *testing.T) {
	lines, err := assembler.Assemble("t.xasm", "LDIA -1\n")
	require.Nil(t, err)
	assert.Equal(t, "1111111111111110", lines[0])
}

func TestAssembleCompDestAndJump(t *testing.T) {
	lines, err := assembler.Assemble("t.xasm", "COMP D+M DM JGT\n")
	require.Nil(t, err)
	word := lines[0]
	require.Len(t, word, 16)
	assert.Equal(t, "11", word[14:])
	dest := word[8:11]
	assert.Equal(t, "101", dest) // D and M set, A clear
	jump := word[11:14]
	assert.Equal(t, "100", jump) // JGT = 4 = 100
}

func TestAssembleUnknownAluCode(t *testing.T) {
	_, err := assembler.Assemble("t.xasm", "COMP bogus D\n")
	require.NotNil(t, err)
}

func TestAssembleUnknownMnemonic(t *testing.T) {
	_, err := assembler.Assemble("t.xasm", "FROB 1\n")
	require.NotNil(t, err)
}

func TestAssemblePlotAndBufr(t *testing.T) {
	lines, err := assembler.Assemble("t.xasm", "PLOT 1\nPLOT 0\nBUFR move\nBUFR update\n")
	require.Nil(t, err)
	require.Len(t, lines, 4)
	for _, l := range lines {
		assert.Regexp(t, "^[01]{16}$", l)
	}
	assert.Equal(t, byte('1'), lines[0][12])
	assert.Equal(t, byte('0'), lines[1][12])
	assert.NotEqual(t, lines[2], lines[3])
}

func TestAssembleCallAndRetn(t *testing.T) {
	lines, err := assembler.Assemble("t.xasm", ".sub\nCALL .sub\nRETN\n")
	require.Nil(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "1000", lines[0][12:])
	assert.Equal(t, "0000000000001100", lines[1])
}

func mustParseBin(t *testing.T, s string) int64 {
	t.Helper()
	var v int64
	for _, c := range s {
		v <<= 1
		if c == '1' {
			v |= 1
		}
	}
	return v
}
