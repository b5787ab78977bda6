// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package buffer

import (
	"fmt"
)

const (
	REGISTER_COUNT = 12 // Words in the register block.
	GENERAL_COUNT  = 8  // General registers r0-r7.
	REG_CHAR       = 7  // Register shown as a character when printable.
	REG_PSR        = 8  // Processor status register.
	REG_SP         = 9  // Stack pointer.
	CLEAR_COUNT    = 10 // Registers zeroed by a clear; the rest are reserved.
)

// Processor status flags.
const (
	PSR_V = uint32(1 << 28) // Overflow
	PSR_C = uint32(1 << 29) // Carry
	PSR_Z = uint32(1 << 30) // Zero
	PSR_N = uint32(1 << 31) // Negative
)

const (
	STACK_SIZE = 256         // Stack size, in words.
	STACK_BASE = 0x2000_0000 // Address of the first stack word.

	// STACK_TOP is the address of the last stack word, loaded into the
	// stack pointer by Reset and Clear.
	STACK_TOP = STACK_BASE + 4*(STACK_SIZE-1)
)

// Registers is the register and status block.
type Registers [REGISTER_COUNT]int32

// Psr returns the processor status register.
func (regs *Registers) Psr() uint32 {
	return uint32(regs[REG_PSR])
}

// Sp returns the stack pointer.
func (regs *Registers) Sp() int32 {
	return regs[REG_SP]
}

// String returns the register block as text.
func (regs *Registers) String() (text string) {
	for n := range GENERAL_COUNT {
		val := uint32(regs[n])
		text += fmt.Sprintf("% 5s: %04X_%04X\n", fmt.Sprintf("r%d", n), val>>16, val&0xffff)
	}

	psr := regs.Psr()
	flags := []byte("----")
	for n, flag := range []uint32{PSR_N, PSR_Z, PSR_C, PSR_V} {
		if psr&flag != 0 {
			flags[n] = "NZCV"[n]
		}
	}
	text += fmt.Sprintf("% 5s: %04X_%04X %s\n", "psr", psr>>16, psr&0xffff, flags)

	sp := uint32(regs.Sp())
	text += fmt.Sprintf("% 5s: %04X_%04X\n", "sp", sp>>16, sp&0xffff)

	return
}

// Stack is the word aligned stack region.
type Stack [STACK_SIZE]int32

// Address returns the address of a stack word.
func (s *Stack) Address(index int) int32 {
	return int32(STACK_BASE + 4*index)
}
