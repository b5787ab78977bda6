// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package engine defines the contract of the instruction execution engine,
// and provides engines usable without target hardware.
package engine

import (
	"github.com/ezrec/ubit/buffer"
)

// Engine executes the instructions in the buffer, updating the register block
// in place. Execution has no error result: how a malformed instruction behaves
// is up to the engine.
type Engine interface {
	Execute(regs *buffer.Registers, ins *buffer.Instructions)
}

// Nop is an engine that executes nothing.
type Nop struct{}

var _ Engine = Nop{}

// Execute leaves the registers untouched.
func (Nop) Execute(regs *buffer.Registers, ins *buffer.Instructions) {
}

// Func adapts a function to the Engine interface.
type Func func(regs *buffer.Registers, ins *buffer.Instructions)

var _ Engine = Func(nil)

// Execute calls fn.
func (fn Func) Execute(regs *buffer.Registers, ins *buffer.Instructions) {
	fn(regs, ins)
}
