package driver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookbusy1344/xenon-toolchain/driver"
	"github.com/lookbusy1344/xenon-toolchain/vm"
)

func TestBuildSimpleProgram(t *testing.T) {
	src := "var x: int = 2\nvar y: int = 3\nvar z: int = x + y\n"
	result, cerr, rerr := driver.Build("test.xs", src, nil, false, 1000)
	require.Nil(t, cerr)
	require.NoError(t, rerr)
	require.NotNil(t, result)
	assert.False(t, result.TimedOut)
	assert.Equal(t, 5, result.Memory[18])
}

func TestBuildSyntaxError(t *testing.T) {
	_, cerr, rerr := driver.Build("test.xs", "var x: int =\n", nil, false, 1000)
	require.NoError(t, rerr)
	require.NotNil(t, cerr)
}

func TestConstantFoldRunsToFoldedValue(t *testing.T) {
	src := "include operations\nconst x 3 + 4 * 5\n"
	result, cerr, rerr := driver.Build("test.xs", src, nil, false, 1000)
	require.Nil(t, cerr)
	require.NoError(t, rerr)
	assert.Equal(t, 23, result.D)
}

func TestForLoopSum(t *testing.T) {
	src := "var s: int = 0\nfor i start: 1 end: 10 step: 1 {\n  s = s + i\n}\n"
	result, cerr, rerr := driver.Build("test.xs", src, nil, false, 10000)
	require.Nil(t, cerr)
	require.NoError(t, rerr)
	assert.False(t, result.TimedOut)
	assert.Equal(t, 55, result.Memory[16])
}

func TestCStyleForLoopSum(t *testing.T) {
	src := "var s: int = 0\nfor (i = 1; i <= 10; i + = 1) {\n  s = s + i\n}\n"
	result, cerr, rerr := driver.Build("test.xs", src, nil, false, 10000)
	require.Nil(t, cerr)
	require.NoError(t, rerr)
	assert.Equal(t, 55, result.Memory[16])
}

func TestWhileCountdown(t *testing.T) {
	src := "var n: int = 5\nwhile n {\n  n = n - 1\n}\n"
	result, cerr, rerr := driver.Build("test.xs", src, nil, false, 1000)
	require.Nil(t, cerr)
	require.NoError(t, rerr)
	assert.Equal(t, 0, result.Memory[16])
}

func TestConditionalTakesTrueBranch(t *testing.T) {
	src := "var x: int = 7\nif x > 5 {\n  x = 1\n} else {\n  x = 0\n}\n"
	result, cerr, rerr := driver.Build("test.xs", src, nil, false, 1000)
	require.Nil(t, cerr)
	require.NoError(t, rerr)
	assert.Equal(t, 1, result.Memory[16])
}

func TestArraySetAndGet(t *testing.T) {
	src := "var a: int[3] = [10, 20, 30]\nvar y: int = a[2]\n"
	result, cerr, rerr := driver.Build("test.xs", src, nil, false, 1000)
	require.Nil(t, cerr)
	require.NoError(t, rerr)
	assert.Equal(t, 30, result.Memory[19])
}

func TestPlotAndFlip(t *testing.T) {
	src := "plot(3, 4, 1)\nplot(5, 4, 1)\nflip()\n"
	result, cerr, rerr := driver.Build("test.xs", src, nil, false, 1000)
	require.Nil(t, cerr)
	require.NoError(t, rerr)
	assert.Equal(t, []vm.Pixel{{X: 3, Y: 4}, {X: 5, Y: 4}}, result.Screen)
}

func TestMultiplyRunsToProduct(t *testing.T) {
	src := "include operations\nvar a: int = 6\nvar b: int = 7\nvar p: int = a * b\n"
	result, cerr, rerr := driver.Build("test.xs", src, nil, false, 10000)
	require.Nil(t, cerr)
	require.NoError(t, rerr)
	assert.Equal(t, 42, result.Memory[18])
}

func TestDivideRunsToQuotient(t *testing.T) {
	src := "include operations\nvar a: int = 20\nvar b: int = 4\nvar q: int = a / b\n"
	result, cerr, rerr := driver.Build("test.xs", src, nil, false, 10000)
	require.Nil(t, cerr)
	require.NoError(t, rerr)
	assert.Equal(t, 5, result.Memory[18])
}

func TestShiftByVariableRuns(t *testing.T) {
	src := "var n: int = 3\nvar r: int = (4 << n)\n"
	result, cerr, rerr := driver.Build("test.xs", src, nil, false, 10000)
	require.Nil(t, cerr)
	require.NoError(t, rerr)
	assert.Equal(t, 32, result.Memory[17])
}

func TestSubtractionDirection(t *testing.T) {
	src := "var a: int = 9\nvar b: int = 3\nvar d: int = a - b\n"
	result, cerr, rerr := driver.Build("test.xs", src, nil, false, 1000)
	require.Nil(t, cerr)
	require.NoError(t, rerr)
	assert.Equal(t, 6, result.Memory[18])
}

func TestSubroutineCall(t *testing.T) {
	src := "var r: int = 0\nsub store(v) {\n  r = v\n}\nstore(12)\n"
	result, cerr, rerr := driver.Build("test.xs", src, nil, false, 1000)
	require.Nil(t, cerr)
	require.NoError(t, rerr)
	assert.Equal(t, 12, result.Memory[16])
}

func TestXorRoundTrip(t *testing.T) {
	src := "var a: int = 12\nvar b: int = 10\nvar x: int = a ^ b\n"
	result, cerr, rerr := driver.Build("test.xs", src, nil, false, 1000)
	require.Nil(t, cerr)
	require.NoError(t, rerr)
	assert.Equal(t, 6, result.Memory[18])
}

func TestCompileThenAssembleThenRun(t *testing.T) {
	asm, cerr := driver.Compile("test.xs", "var ok: int = 1\n", nil, false, false)
	require.Nil(t, cerr)

	words, aerr := driver.Assemble("test.xs", asm)
	require.Nil(t, aerr)

	result, rerr := driver.Run(words, 1000)
	require.NoError(t, rerr)
	assert.True(t, result.Halted)
}
