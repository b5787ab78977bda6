// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package buffer

import (
	"fmt"
)

const (
	INSTRUCTIONS_SIZE = 256 // Size of the instruction buffer, in bytes.
	PACKET_SIZE       = 20  // Inbound packet region at the start of the buffer.
	COMMAND_OFFSET    = 19  // Offset of the command code within a packet.
	SLOT_BASE         = 20  // Offset of the first persistent slot.
	SLOT_SIZE         = 4   // Size of a persistent slot, in bytes.
	SLOT_COUNT        = 4   // Number of slots addressable by store commands.
	WINDOW_SIZE       = 16  // Size of the peek window at SLOT_BASE.
)

// DefaultProgram is loaded by LoadDefault: nine Thumb 'bx ip' returns.
var DefaultProgram = [18]byte{
	0x60, 0x47, 0x60, 0x47, 0x60, 0x47,
	0x60, 0x47, 0x60, 0x47, 0x60, 0x47,
	0x60, 0x47, 0x60, 0x47, 0x60, 0x47,
}

// Instructions is the word aligned instruction buffer.
type Instructions [INSTRUCTIONS_SIZE]byte

// Packet returns the inbound packet region.
func (ins *Instructions) Packet() []byte {
	return ins[:PACKET_SIZE]
}

// Command returns the command code of the most recently received packet.
func (ins *Instructions) Command() byte {
	return ins[COMMAND_OFFSET]
}

// Receive copies an inbound packet into the packet region.
func (ins *Instructions) Receive(packet []byte) {
	copy(ins[:PACKET_SIZE], packet)
}

// Slot returns the storage for a persistent slot.
func (ins *Instructions) Slot(slot int) (data []byte, err error) {
	if slot < 0 || slot >= SLOT_COUNT {
		err = ErrSlotRange(slot)
		return
	}

	offset := SLOT_BASE + slot*SLOT_SIZE
	data = ins[offset : offset+SLOT_SIZE]
	return
}

// Window returns a copy of the peek window reported to the host.
func (ins *Instructions) Window() (window [WINDOW_SIZE]byte) {
	copy(window[:], ins[SLOT_BASE:SLOT_BASE+WINDOW_SIZE])
	return
}

// Clear zeros the entire buffer.
func (ins *Instructions) Clear() {
	clear(ins[:])
}

// LoadDefault overwrites the start of the buffer with DefaultProgram.
func (ins *Instructions) LoadDefault() {
	copy(ins[:], DefaultProgram[:])
}

// State is the bridge context: the buffer, registers and stack that the
// protocol and the execution engine operate on.
type State struct {
	Instructions Instructions
	Registers    Registers
	Stack        Stack
}

// NewState creates a freshly reset state.
func NewState() (st *State) {
	st = &State{}
	st.Reset()
	return
}

// Reset the state as at power on.
// - Zeros the instruction buffer, registers and stack.
// - Points the stack pointer at the top of the stack.
func (st *State) Reset() {
	st.Instructions.Clear()
	clear(st.Registers[:])
	clear(st.Stack[:])
	st.Registers[REG_SP] = st.Stack.Address(STACK_SIZE - 1)
}

// Clear zeros r0-r7, the PSR and the instruction buffer, and resets the
// stack pointer. The reserved registers are left untouched.
func (st *State) Clear() {
	clear(st.Registers[:CLEAR_COUNT])
	st.Instructions.Clear()
	st.Registers[REG_SP] = st.Stack.Address(STACK_SIZE - 1)
}

// Store copies the first SLOT_SIZE bytes of the packet region into a slot.
func (st *State) Store(slot int) (err error) {
	data, err := st.Instructions.Slot(slot)
	if err != nil {
		return
	}

	copy(data, st.Instructions[:SLOT_SIZE])
	return
}

// String returns the registers and the peek window as text.
func (st *State) String() (text string) {
	text = st.Registers.String()
	window := st.Instructions.Window()
	text += fmt.Sprintf("% 5s: % x\n", "mem", window[:])
	return
}
