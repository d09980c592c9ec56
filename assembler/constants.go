// Package assembler turns XAssembly text into 16-character binary words for
// the Xenon VM, in the traditional two-pass label-then-encode shape.
package assembler

// aluCodes is the canonical COMP mnemonic table, keyed by the textual ALU
// expression. Values are the 8-bit code occupying the top byte of a COMP
// word: bit7=a (M vs A select), bit6=nD, bit5=zD, bit4=f (add/xor vs
// and/shift), bit3=no (negate result), bit2=zY, bit1=nY, bit0=alt (xor
// instead of add, or shift instead of and).
var aluCodes = map[string]int{
	"0":        36,
	"1":        126,
	"-1":       44,
	"-2":       118,
	"D":        6,
	"A":        224,
	"M":        96,
	"!D":       14,
	"!A":       232,
	"!M":       104,
	"-D":       30,
	"-A":       248,
	"-M":       120,
	"D++":      94,
	"A++":      250,
	"M++":      122,
	"D--":      22,
	"A--":      240,
	"M--":      112,
	"D+A":      144,
	"D+M":      16,
	"D-A":      216,
	"D-M":      88,
	"A-D":      154,
	"M-D":      26,
	"D&A":      128,
	"D&M":      0,
	"!(D&A)":   136,
	"!(D&M)":   8,
	"D|A":      202,
	"D|M":      74,
	"!(D|A)":   194,
	"!(D|M)":   66,
	"D^A":      145,
	"D^M":      17,
	"!(D^A)":   153,
	"!(D^M)":   25,
	">>D":      7,
	">>M":      97,
}

// jumps maps jump mnemonics to their 3-bit condition mask: bit2=result>0,
// bit1=result==0, bit0=result<0.
var jumps = map[string]int{
	"JLT": 1, "JEQ": 2, "JLE": 3, "JGT": 4, "JNE": 5, "JGE": 6, "JMP": 7,
}

const (
	noop = "0000000000000000"
	halt = "0000000000000100"
	retn = "0000000000001100"
)
