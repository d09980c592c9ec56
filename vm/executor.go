package vm

import "fmt"

const zeroWord = "0000000000000000"
const haltWord = "0000000000000100"

// PadProgram pads an assembled program out to the fixed PROM size with
// NOOP words. A binary with no HALT word anywhere in it is refused
// outright rather than run to the step limit.
func PadProgram(words []string) ([]string, error) {
	if len(words) > ProgramWords {
		return nil, fmt.Errorf("program has %d words, exceeds the %d-word limit", len(words), ProgramWords)
	}
	halted := false
	for _, w := range words {
		if w == haltWord {
			halted = true
			break
		}
	}
	if !halted {
		return nil, fmt.Errorf("program contains no HALT instruction")
	}
	padded := make([]string, ProgramWords)
	copy(padded, words)
	for i := len(words); i < ProgramWords; i++ {
		padded[i] = zeroWord
	}
	return padded, nil
}

// Step decodes and executes a single instruction at the current PC.
func (v *VM) Step(prom []string) error {
	if v.PC < 0 || v.PC >= len(prom) {
		return v.fault("", "program counter ran off the end of memory")
	}
	word := prom[v.PC]
	v.Steps++

	switch decodeGroup(word) {
	case groupLDIA:
		v.A = decodeImmediate14(word)
		v.PC++

	case groupCOMP:
		return v.stepComp(word)

	case groupSystem:
		return v.stepSystem(word)

	default: // groupIO
		return v.stepIO(word)
	}
	return nil
}

func (v *VM) stepComp(word string) error {
	code := decodeBinary(word[0:8])
	destD := word[8] == '1'
	destA := word[9] == '1'
	destM := word[10] == '1'
	jumpMask := decodeBinary(word[11:14])

	origA := v.A
	readsM := word[0] == '0' // a-bit clear: the ALU operand is mem[A]
	if readsM || destM {
		if origA < 0 || origA >= MemorySize {
			return v.fault(word, "M address out of range")
		}
	}
	mVal := 0
	if readsM {
		mVal = v.Memory[origA]
	}

	res := aluCompute(code, v.D, v.A, mVal)

	if destD {
		v.D = res
	}
	if destA {
		v.A = res
	}
	if destM {
		v.Memory[origA] = res
	}

	jump := (jumpMask&4 != 0 && res > 0) ||
		(jumpMask&2 != 0 && res == 0) ||
		(jumpMask&1 != 0 && res < 0)

	if jump {
		v.PC = origA
	} else {
		v.PC++
	}
	return nil
}

func (v *VM) stepSystem(word string) error {
	switch word[12:14] {
	case "00": // NOOP
		v.PC++

	case "01": // HALT
		v.Halted = true

	case "10": // CALL
		if len(v.Stack) >= CallStackDepth {
			return v.fault(word, "call stack overflow")
		}
		target := decodeCallTarget(word)
		v.Stack = append(v.Stack, CallFrame{ReturnPC: v.PC + 1})
		v.PC = target

	default: // "11" RETN
		if len(v.Stack) == 0 {
			return v.fault(word, "call stack underflow")
		}
		frame := v.Stack[len(v.Stack)-1]
		v.Stack = v.Stack[:len(v.Stack)-1]
		v.PC = frame.ReturnPC
	}
	return nil
}

func (v *VM) stepIO(word string) error {
	if word[13] == '1' {
		value := decodeBinary(word[12:13])
		x, y := v.Memory[XPort], v.Memory[YPort]
		if x < 0 || x >= ScreenWidth || y < 0 || y >= ScreenHeight {
			return v.fault(word, fmt.Sprintf("PLOT coordinate (%d,%d) out of range", x, y))
		}
		v.FB.Plot(x, y, value)
		v.PC++
		return nil
	}

	switch word[11:13] {
	case "10":
		v.FB.Move()
	case "00":
		v.FB.Update()
	default:
		return v.fault(word, "unknown BUFR operand")
	}
	v.PC++
	return nil
}

// Run executes a padded program from the VM's current PC until HALT, a
// fatal error, or maxSteps is exceeded. timedOut reports the latter. It
// does not reset the machine first; New or Reset gives a clean one.
func (v *VM) Run(prom []string, maxSteps int) (timedOut bool, err error) {
	for v.Steps < maxSteps {
		if v.Halted {
			return false, nil
		}
		if err := v.Step(prom); err != nil {
			return false, err
		}
	}
	return !v.Halted, nil
}
