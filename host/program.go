// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package host

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseProgram parses a program listing into 16-bit instructions.
//
// The listing is split on '/'. Parts beginning with '*' are comments. All
// whitespace and control characters are removed from the rest, which must
// then be a sequence of 4 digit hexadecimal instructions.
func ParseProgram(text string) (program []uint16, err error) {
	var sb strings.Builder
	for _, part := range strings.Split(text, "/") {
		if strings.HasPrefix(part, "*") {
			continue
		}
		for _, r := range part {
			if unicode.IsSpace(r) || unicode.IsControl(r) {
				continue
			}
			sb.WriteRune(r)
		}
	}

	digits := sb.String()
	if len(digits)%4 != 0 {
		err = ErrIncompleteInstruction
		return
	}

	for n := 0; n < len(digits); n += 4 {
		hex := digits[n : n+4]
		var value uint64
		value, err = strconv.ParseUint(hex, 16, 16)
		if err != nil {
			err = ErrInvalidInstruction{Index: n/4 + 1, Text: hex}
			return
		}
		program = append(program, uint16(value))
	}

	return
}

// ParseWord parses 1 to 8 hexadecimal digits into a memory word.
func ParseWord(text string) (word uint32, err error) {
	hex := strings.Join(strings.Fields(text), "")
	if len(hex) == 0 || len(hex) > 8 {
		err = ErrWordRange(text)
		return
	}

	value, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		err = ErrWordRange(text)
		return
	}

	word = uint32(value)
	return
}
