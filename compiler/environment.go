package compiler

import (
	"strconv"
	"strings"

	"github.com/lookbusy1344/xenon-toolchain/lexer"
)

type subroutineInfo struct {
	paramAddrs []int
	infoCell   int
}

// Environment is the compiler's mutable state while walking the AST:
// the instruction list being built, the register pools, the symbol
// tables, and the shadow A register used to elide redundant loads.
type Environment struct {
	instructions []string

	availableRegisters map[int]bool
	allocatedRegisters map[int]bool

	constants   map[string]int
	variables   map[string]int
	arrays      map[string]int // declared length, keyed like variables
	subroutines map[string]subroutineInfo

	currentSub string // non-empty while a subroutine body is compiling

	vars  int
	jumps int

	aReg, dReg int
	aKnown     bool

	sawPlot     bool
	sawBufrCall bool

	pendingSubs []*SubroutineDef // emitted after the main program's HALT
}

// builtinConstants seeds the symbol table with the literals the language
// defines outside the ordinary `const` mechanism.
var builtinConstants = map[string]int{
	"true":   -1,
	"false":  0,
	"N_BITS": 16,
}

func newEnvironment() *Environment {
	e := &Environment{
		availableRegisters: make(map[int]bool, 16),
		allocatedRegisters: make(map[int]bool, 16),
		constants:          make(map[string]int),
		variables:          make(map[string]int),
		arrays:             make(map[string]int),
		subroutines:        make(map[string]subroutineInfo),
	}
	for i := 0; i < 16; i++ {
		e.availableRegisters[i] = true
	}
	for name, value := range builtinConstants {
		e.constants[name] = value
	}
	return e
}

func (e *Environment) emit(line string) { e.instructions = append(e.instructions, line) }

func (e *Environment) last() string {
	if len(e.instructions) == 0 {
		return ""
	}
	return e.instructions[len(e.instructions)-1]
}

func (e *Environment) defined(name string) bool {
	if _, ok := e.constants[name]; ok {
		return true
	}
	if _, ok := e.variables[name]; ok {
		return true
	}
	if _, ok := e.subroutines[name]; ok {
		return true
	}
	return false
}

// allocateRegister claims a scratch cell and spills D into it: load the
// register's address into A (unless A already holds it) then COMP D into
// M, coalescing onto the previous instruction's destination bits when
// possible.
func (e *Environment) allocateRegister(span lexer.Span) (int, *lexer.Error) {
	if len(e.allocatedRegisters) == 16 {
		return 0, lexer.NewCompileError(span.Start, span.End, 0, "out of temporary registers; refine your expression")
	}
	reg := -1
	for i := 0; i < 16; i++ {
		if e.availableRegisters[i] {
			reg = i
			break
		}
	}
	delete(e.availableRegisters, reg)
	e.allocatedRegisters[reg] = true

	loaded := false
	if reg != e.aReg || !e.aKnown {
		e.emit("LDIA r" + strconv.Itoa(reg))
		e.aReg = reg
		e.aKnown = true
		loaded = true
	}

	last := e.last()
	if !loaded && strings.HasPrefix(last, "COMP ") && strings.HasSuffix(last, " D") {
		e.instructions[len(e.instructions)-1] = last + "M"
	} else {
		e.emit("COMP D M")
	}
	return reg, nil
}

func (e *Environment) freeRegister(reg int) {
	delete(e.allocatedRegisters, reg)
	e.availableRegisters[reg] = true
}

func (e *Environment) makeJumpLabel(prefix string) int {
	id := e.jumps
	e.emitLabel("." + prefix + strconv.Itoa(id))
	e.jumps++
	return id
}

// emitLabel emits a bare label line and forces the A shadow, since control
// may reach a label by a jump that bypassed whatever instruction last set
// aReg/aKnown.
func (e *Environment) emitLabel(label string) {
	e.emit(label)
	e.aKnown = false
}

// loadImmediate loads a literal into A/D, using the single-instruction
// COMP form for the four ISA known-values (-2, -1, 0, 1) and LDIA+COMP
// otherwise.
func (e *Environment) loadImmediate(value int) {
	if value == -2 || value == -1 || value == 0 || value == 1 {
		e.emit("COMP " + strconv.Itoa(value) + " D")
	} else {
		e.emit("LDIA " + strconv.Itoa(value))
		e.emit("COMP A D")
	}
	e.aReg = value
	e.aKnown = false // a literal value, not a register slot's address
}

// loadVariable loads a variable's value from memory into D. It emits
// nothing when A is already known to hold the address and the previous
// instruction was COMP D M, since D then already equals that cell.
func (e *Environment) loadVariable(name string, addr int) {
	if e.last() == "COMP D M" && e.aKnown && e.aReg == addr {
		return
	}
	e.emit("LDIA " + strconv.Itoa(addr) + " // " + name)
	e.emit("COMP M D")
	e.aReg = addr
	e.aKnown = true
}
