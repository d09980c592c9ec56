// Package driver glues the lexer, compiler, assembler and VM into the
// compile/assemble/run pipeline.
package driver

import (
	"os"
	"path/filepath"

	"github.com/lookbusy1344/xenon-toolchain/assembler"
	"github.com/lookbusy1344/xenon-toolchain/compiler"
	"github.com/lookbusy1344/xenon-toolchain/lexer"
	"github.com/lookbusy1344/xenon-toolchain/vm"
)

// DirSource resolves `include` targets against a directory of `.xs`
// files on disk, the canonical lexer.Source implementation.
type DirSource struct {
	Dir string
}

func (s DirSource) Read(name string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Compile lexes, parses and code-generates X# source, returning the
// XAssembly text it produces. removeTrailing matches compiler.Compile's
// flag for stripping a dangling result-register load.
func Compile(filename, source string, src lexer.Source, fileIncludesOK, removeTrailing bool) ([]string, *lexer.Error) {
	tokens, err := lexer.Lex(filename, source, src, fileIncludesOK)
	if err != nil {
		return nil, err
	}
	ast, err := compiler.Parse(tokens)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(ast, removeTrailing)
}

// Assemble turns XAssembly lines into binary words.
func Assemble(filename string, lines []string) ([]string, *lexer.Error) {
	text := ""
	for i, line := range lines {
		if i > 0 {
			text += "\n"
		}
		text += line
	}
	return assembler.Assemble(filename, text)
}

// RunResult summarizes one VM execution for callers that do not need the
// full machine.
type RunResult struct {
	TimedOut bool
	Halted   bool
	Steps    int
	A, D     int
	Screen   []vm.Pixel
	Memory   [vm.MemorySize]int
}

// Run pads a binary program and executes it to completion, a timeout, or
// a fatal runtime error.
func Run(words []string, maxSteps int) (*RunResult, error) {
	prom, err := vm.PadProgram(words)
	if err != nil {
		return nil, err
	}
	machine := vm.New()
	timedOut, runErr := machine.Run(prom, maxSteps)
	if runErr != nil {
		return nil, runErr
	}
	return &RunResult{
		TimedOut: timedOut,
		Halted:   machine.Halted,
		Steps:    machine.Steps,
		A:        machine.A,
		D:        machine.D,
		Screen:   machine.FB.Screen(),
		Memory:   machine.Memory,
	}, nil
}

// Build runs the full compile -> assemble -> run pipeline in one call.
func Build(filename, source string, src lexer.Source, fileIncludesOK bool, maxSteps int) (*RunResult, *lexer.Error, error) {
	asm, cerr := Compile(filename, source, src, fileIncludesOK, false)
	if cerr != nil {
		return nil, cerr, nil
	}
	words, aerr := Assemble(filename, asm)
	if aerr != nil {
		return nil, aerr, nil
	}
	result, rerr := Run(words, maxSteps)
	if rerr != nil {
		return nil, nil, rerr
	}
	return result, nil, nil
}
