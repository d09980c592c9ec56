package vm

import "strconv"

// opGroup is the 2-bit family selector occupying the bottom two
// characters of every word: "00" system, "01" I/O, "10" LDIA, "11" COMP.
type opGroup byte

const (
	groupSystem opGroup = iota
	groupIO
	groupLDIA
	groupCOMP
)

func decodeGroup(word string) opGroup {
	switch word[14:16] {
	case "00":
		return groupSystem
	case "01":
		return groupIO
	case "10":
		return groupLDIA
	default:
		return groupCOMP
	}
}

// decodeBinary reads a bit field (MSB-first, word[0] is the overall
// word's bit15) as an unsigned integer.
func decodeBinary(field string) int {
	v, _ := strconv.ParseInt(field, 2, 64)
	return int(v)
}

// decodeImmediate14 decodes a LDIA operand: 14 bits, two's-complement,
// the inverse of assembler.convertToBin for values in [-8192, 8191]. A
// value in [8192, 16383], which the assembler also accepts, has bit 13
// set and decodes as value-16384.
func decodeImmediate14(word string) int {
	raw := decodeBinary(word[0:14])
	if word[0] == '1' {
		raw -= 16384
	}
	return raw
}

// decodeCallTarget decodes a CALL operand: a plain 12-bit unsigned
// program address, the inverse of padBin(addr, 12).
func decodeCallTarget(word string) int {
	return decodeBinary(word[0:12])
}

// aluCompute implements the COMP ALU, the exact structural inverse of
// assembler.aluCodes: bit7=a (M vs A select), bit6=nD, bit5=zD,
// bit4=f (add/xor vs and/shift), bit3=no (negate result), bit2=zY,
// bit1=nY, bit0=alt (xor instead of add, or shift instead of and).
func aluCompute(code int, d, a, m int) int {
	bit := func(n uint) bool { return code&(1<<n) != 0 }

	useA := bit(7)
	negD := bit(6)
	zeroD := bit(5)
	addOp := bit(4)
	negateResult := bit(3)
	zeroY := bit(2)
	negY := bit(1)
	alt := bit(0)

	y := m
	if useA {
		y = a
	}

	x := d
	if zeroD {
		x = 0
	}
	if negD {
		x = wrap16(^x)
	}

	if zeroY {
		y = 0
	}
	if negY {
		y = wrap16(^y)
	}

	var res int
	if addOp {
		if alt {
			res = x ^ y
		} else {
			res = x + y
		}
	} else {
		res = x & y
		if alt {
			res = res >> 1
		}
	}
	res = wrap16(res)

	if negateResult {
		res = wrap16(^res)
	}
	return res
}
