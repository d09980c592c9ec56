package compiler

import "strings"

// peepholeOptimize applies two local rewrite rules over the emitted
// instruction stream until neither fires:
//
//   - a LDIA immediately followed by another LDIA: the first is dead,
//     since nothing reads A between the two loads.
//   - a "COMP -D D" immediately followed by another "COMP -D D": the
//     pair negates D twice, leaving it unchanged, so both lines vanish.
//
// Labels (lines beginning with ".") are never touched; they're not
// instructions and could be branch targets for code we'd otherwise
// drop out from under.
func peepholeOptimize(lines []string) []string {
	for {
		next, changed := peepholePass(lines)
		lines = next
		if !changed {
			return lines
		}
	}
}

func peepholePass(lines []string) ([]string, bool) {
	out := make([]string, 0, len(lines))
	changed := false
	for i := 0; i < len(lines); i++ {
		cur := lines[i]
		if i+1 < len(lines) {
			next := lines[i+1]
			if strings.HasPrefix(cur, "LDIA ") && strings.HasPrefix(next, "LDIA ") {
				changed = true
				continue // drop cur, keep next for the following iteration
			}
			if cur == "COMP -D D" && next == "COMP -D D" {
				i++ // drop both
				changed = true
				continue
			}
		}
		out = append(out, cur)
	}
	return out, changed
}
