package assembler

import (
	"strconv"
	"strings"

	"github.com/lookbusy1344/xenon-toolchain/lexer"
)

// linePos builds a whole-line span for diagnostics; the assembler works
// line-by-line and has no finer-grained column tracking than the source
// text it was handed.
func linePos(filename string, line int) (lexer.Position, lexer.Position) {
	start := lexer.Position{Filename: filename, Line: line, Column: 0}
	end := lexer.Position{Filename: filename, Line: line, Column: 1}
	return start, end
}

func newAssemblyError(filename string, line int, details string) *lexer.Error {
	start, end := linePos(filename, line)
	return lexer.NewError(start, end, lexer.ErrAssembly, details)
}

// convertToBin renders value as a 14-character two's-complement bit
// string, matching the assembler's LDIA encoding.
func convertToBin(value int) string {
	if value >= 0 {
		return padBin(value, 14)
	}
	return padBin(16384+value, 14)
}

func padBin(value, width int) string {
	s := strconv.FormatInt(int64(value), 2)
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}

// Assemble runs two-pass label resolution and encoding over XAssembly
// text, producing one 16-character binary word per instruction or blank
// line; pure label lines emit no word.
func Assemble(filename, text string) ([]string, *lexer.Error) {
	// Register shorthand r0..r15 is pure textual substitution, applied
	// in ascending numeric order so "r1".."r15" collapse onto their
	// trailing digits correctly even though "r1" is a prefix of
	// "r10".."r15".
	for i := 0; i < 16; i++ {
		text = strings.ReplaceAll(text, "r"+strconv.Itoa(i), strconv.Itoa(i))
	}

	// A final newline terminates the last line rather than starting an
	// extra blank one.
	text = strings.TrimSuffix(text, "\n")
	rawLines := strings.Split(text, "\n")

	labels := make(map[string]int)
	skips := 0
	for lineNum, line := range rawLines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ".") && !strings.Contains(trimmed, " ") && trimmed != "." {
			if _, dup := labels[trimmed]; dup {
				return nil, newAssemblyError(filename, lineNum, "label '"+trimmed+"' defined twice")
			}
			labels[trimmed] = lineNum - skips
			skips++
		}
	}

	out := make([]string, 0, len(rawLines))
	for lineNum, raw := range rawLines {
		line := raw
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)

		if line == "" {
			out = append(out, noop)
			continue
		}

		if strings.HasPrefix(line, ".") && !strings.Contains(line, " ") {
			continue // pure label line, not an instruction
		}

		fields := strings.Fields(line)
		word, err := encodeLine(filename, lineNum, fields, labels)
		if err != nil {
			return nil, err
		}
		out = append(out, word)
	}
	return out, nil
}

func resolveImmediate(filename string, lineNum int, token string, labels map[string]int) (int, *lexer.Error) {
	if addr, ok := labels[token]; ok {
		return addr, nil
	}
	v, err := strconv.Atoi(token)
	if err != nil {
		return 0, newAssemblyError(filename, lineNum, "label '"+token+"' unbound")
	}
	return v, nil
}

func encodeLine(filename string, lineNum int, fields []string, labels map[string]int) (string, *lexer.Error) {
	switch fields[0] {
	case "NOOP":
		if len(fields) != 1 {
			return "", newAssemblyError(filename, lineNum, "NOOP takes 0 arguments")
		}
		return noop, nil

	case "HALT":
		if len(fields) != 1 {
			return "", newAssemblyError(filename, lineNum, "HALT takes 0 arguments")
		}
		return halt, nil

	case "RETN":
		if len(fields) != 1 {
			return "", newAssemblyError(filename, lineNum, "RETN takes 0 arguments")
		}
		return retn, nil

	case "LDIA":
		if len(fields) != 2 {
			return "", newAssemblyError(filename, lineNum, "LDIA takes 1 argument")
		}
		v, err := resolveImmediate(filename, lineNum, fields[1], labels)
		if err != nil {
			return "", err
		}
		if v < -8192 || v > 16383 {
			return "", newAssemblyError(filename, lineNum, "LDIA immediate "+strconv.Itoa(v)+" does not fit in 14 bits")
		}
		return convertToBin(v) + "10", nil

	case "CALL":
		if len(fields) != 2 {
			return "", newAssemblyError(filename, lineNum, "CALL takes 1 argument")
		}
		v, err := resolveImmediate(filename, lineNum, fields[1], labels)
		if err != nil {
			return "", err
		}
		if v < 0 || v > 4095 {
			return "", newAssemblyError(filename, lineNum, "CALL target "+strconv.Itoa(v)+" does not fit in 12 bits")
		}
		return padBin(v, 12) + "1000", nil

	case "COMP":
		return encodeComp(filename, lineNum, fields)

	case "PLOT":
		if len(fields) != 2 {
			return "", newAssemblyError(filename, lineNum, "PLOT takes 1 argument")
		}
		if fields[1] != "0" && fields[1] != "1" {
			return "", newAssemblyError(filename, lineNum, "PLOT value must be 0 or 1")
		}
		return "000000000000" + fields[1] + "101", nil

	case "BUFR":
		if len(fields) != 2 {
			return "", newAssemblyError(filename, lineNum, "BUFR takes 1 argument")
		}
		var op string
		switch fields[1] {
		case "move":
			op = "10"
		case "update":
			op = "00"
		default:
			return "", newAssemblyError(filename, lineNum, "unknown BUFR operand '"+fields[1]+"'")
		}
		return "00000000000" + op + "001", nil

	default:
		return "", newAssemblyError(filename, lineNum, "unknown instruction: "+fields[0])
	}
}

func encodeComp(filename string, lineNum int, fields []string) (string, *lexer.Error) {
	if len(fields) < 2 || len(fields) > 4 {
		return "", newAssemblyError(filename, lineNum, "COMP takes 1-3 arguments")
	}
	code, ok := aluCodes[fields[1]]
	if !ok {
		return "", newAssemblyError(filename, lineNum, "code '"+fields[1]+"' is not in the available codes")
	}

	jump := 0
	dest := [3]byte{'0', '0', '0'} // D, A, M
	if len(fields) > 2 {
		destOrJump := fields[2]
		if j, ok := jumps[destOrJump]; ok {
			jump = j
		} else {
			for i, loc := range []byte{'D', 'A', 'M'} {
				if strings.IndexByte(destOrJump, loc) >= 0 {
					dest[i] = '1'
				}
			}
			if len(fields) > 3 {
				j, ok := jumps[fields[3]]
				if !ok {
					return "", newAssemblyError(filename, lineNum, "unknown jump mnemonic '"+fields[3]+"'")
				}
				jump = j
			}
		}
	}

	return padBin(code, 8) + string(dest[:]) + padBin(jump, 3) + "11", nil
}
