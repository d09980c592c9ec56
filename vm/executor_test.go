package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookbusy1344/xenon-toolchain/assembler"
	"github.com/lookbusy1344/xenon-toolchain/vm"
)

func run(t *testing.T, asm string, maxSteps int) *vm.VM {
	t.Helper()
	words, err := assembler.Assemble("test.xa", asm)
	require.Nil(t, err)
	prom, perr := vm.PadProgram(words)
	require.NoError(t, perr)
	machine := vm.New()
	timedOut, runErr := machine.Run(prom, maxSteps)
	require.NoError(t, runErr)
	require.False(t, timedOut)
	return machine
}

func TestLoadImmediatePositive(t *testing.T) {
	m := run(t, "LDIA 5\nCOMP A D\nHALT\n", 100)
	assert.Equal(t, 5, m.D)
}

func TestLoadImmediateNegative(t *testing.T) {
	m := run(t, "LDIA -7\nCOMP A D\nHALT\n", 100)
	assert.Equal(t, -7, m.D)
}

func TestArithmeticOverflowWraps(t *testing.T) {
	// 4 x 15000 = 60000, which wraps to -5536 in signed 16-bit.
	m := run(t, "LDIA 15000\nCOMP A D\nCOMP D+A D\nCOMP D+A D\nCOMP D+A D\nHALT\n", 100)
	assert.Equal(t, -5536, m.D)
}

func TestNegateIsTwosComplement(t *testing.T) {
	m := run(t, "LDIA 12\nCOMP A D\nCOMP -D D\nHALT\n", 100)
	assert.Equal(t, -12, m.D)
}

func TestBitwiseNot(t *testing.T) {
	m := run(t, "LDIA 0\nCOMP A D\nCOMP !D D\nHALT\n", 100)
	assert.Equal(t, -1, m.D)
}

func TestIncrementAndDecrement(t *testing.T) {
	m := run(t, "LDIA 9\nCOMP A D\nCOMP D++ D\nHALT\n", 100)
	assert.Equal(t, 10, m.D)

	m = run(t, "LDIA 9\nCOMP A D\nCOMP D-- D\nHALT\n", 100)
	assert.Equal(t, 8, m.D)
}

func TestXorAgainstARegister(t *testing.T) {
	m := run(t, "LDIA 12\nCOMP A D\nLDIA 10\nCOMP D^A D\nHALT\n", 100)
	assert.Equal(t, 6, m.D)
}

func TestXorAgainstMemory(t *testing.T) {
	m := run(t, "LDIA 10\nCOMP A D\nLDIA 20\nCOMP D M\nLDIA 12\nCOMP A D\nLDIA 20\nCOMP D^M D\nHALT\n", 100)
	assert.Equal(t, 6, m.D)
}

func TestCompMemoryAddressOutOfRangeFaults(t *testing.T) {
	words, err := assembler.Assemble("test.xa", "LDIA 3000\nCOMP 1 M\nHALT\n")
	require.Nil(t, err)
	prom, perr := vm.PadProgram(words)
	require.NoError(t, perr)
	m := vm.New()
	_, runErr := m.Run(prom, 100)
	require.Error(t, runErr)
}

func TestShiftRight(t *testing.T) {
	m := run(t, "LDIA 16\nCOMP A D\nCOMP >>D D\nHALT\n", 100)
	assert.Equal(t, 8, m.D)
}

func TestMemoryWriteAndRead(t *testing.T) {
	m := run(t, "LDIA 99\nCOMP A D\nLDIA 20\nCOMP D M\nCOMP M D\nHALT\n", 100)
	assert.Equal(t, 99, m.Memory[20])
	assert.Equal(t, 99, m.D)
}

func TestConditionalJumpTaken(t *testing.T) {
	// D starts at 0; if D==0 jump over the LDIA that would set D=1.
	asm := "" +
		"LDIA 0\n" +
		"COMP A D\n" +
		"LDIA .skip\n" +
		"COMP D JEQ\n" +
		"LDIA 1\n" +
		"COMP A D\n" +
		".skip\n" +
		"HALT\n"
	m := run(t, asm, 100)
	assert.Equal(t, 0, m.D)
}

func TestCallAndReturn(t *testing.T) {
	asm := "" +
		"LDIA .main\n" +
		"COMP A JMP\n" +
		".sub\n" +
		"LDIA 42\n" +
		"COMP A D\n" +
		"RETN\n" +
		".main\n" +
		"CALL .sub\n" +
		"HALT\n"
	m := run(t, asm, 100)
	assert.Equal(t, 42, m.D)
}

func TestCallStackOverflow(t *testing.T) {
	words, err := assembler.Assemble("test.xa", "CALL .loop\n.loop\nCALL .loop\nHALT\n")
	require.Nil(t, err)
	prom, perr := vm.PadProgram(words)
	require.NoError(t, perr)
	m := vm.New()
	_, runErr := m.Run(prom, 1000)
	require.Error(t, runErr)
	var rerr *vm.RuntimeError
	require.ErrorAs(t, runErr, &rerr)
}

func TestPlotAndBufferUpdate(t *testing.T) {
	asm := "" +
		"LDIA 3\n" +
		"COMP A D\n" +
		"LDIA 2048\n" +
		"COMP D M\n" +
		"LDIA 4\n" +
		"COMP A D\n" +
		"LDIA 2049\n" +
		"COMP D M\n" +
		"PLOT 1\n" +
		"BUFR update\n" +
		"HALT\n"
	m := run(t, asm, 100)
	screen := m.FB.Screen()
	require.Len(t, screen, 1)
	assert.Equal(t, vm.Pixel{X: 3, Y: 4}, screen[0])
}

func TestPlotOutOfRangeFaults(t *testing.T) {
	asm := "" +
		"LDIA 999\n" +
		"COMP A D\n" +
		"LDIA 2048\n" +
		"COMP D M\n" +
		"PLOT 1\n" +
		"HALT\n"
	words, err := assembler.Assemble("test.xa", asm)
	require.Nil(t, err)
	prom, perr := vm.PadProgram(words)
	require.NoError(t, perr)
	m := vm.New()
	_, runErr := m.Run(prom, 100)
	require.Error(t, runErr)
}

func TestTimeout(t *testing.T) {
	words, err := assembler.Assemble("test.xa", ".loop\nCOMP 0 D\nLDIA .loop\nCOMP A JMP\nHALT\n")
	require.Nil(t, err)
	prom, perr := vm.PadProgram(words)
	require.NoError(t, perr)
	m := vm.New()
	timedOut, runErr := m.Run(prom, 50)
	require.NoError(t, runErr)
	assert.True(t, timedOut)
}

func TestPadProgramRejectsMissingHalt(t *testing.T) {
	words, err := assembler.Assemble("test.xa", "LDIA 1\nCOMP A D\n")
	require.Nil(t, err)
	_, perr := vm.PadProgram(words)
	require.Error(t, perr)
}
