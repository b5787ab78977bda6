// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package engine

import (
	"log"
	"math"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/ubit/buffer"
)

// SCRIPT_ENTRY is the function a script must define.
const SCRIPT_ENTRY = "execute"

// Predefined script constants.
var scriptPredeclared = starlark.StringDict{
	"STACK_BASE": starlark.MakeInt(buffer.STACK_BASE),
	"STACK_TOP":  starlark.MakeInt(buffer.STACK_TOP),
	"SLOT_BASE":  starlark.MakeInt(buffer.SLOT_BASE),
	"PSR_N":      starlark.MakeUint64(uint64(buffer.PSR_N)),
	"PSR_Z":      starlark.MakeUint64(uint64(buffer.PSR_Z)),
	"PSR_C":      starlark.MakeUint64(uint64(buffer.PSR_C)),
	"PSR_V":      starlark.MakeUint64(uint64(buffer.PSR_V)),
}

// Script is an engine implemented by a Starlark program.
//
// The program defines execute(registers, instructions). registers is a list
// of the twelve register words, which the function updates in place, and
// instructions is the instruction buffer as a tuple of byte values. Register
// values are truncated to 32 bits, so both signed and unsigned forms are
// accepted.
type Script struct {
	Verbose bool   // If set, logs each execution.
	Name    string // Name of the script, used in errors.

	execute starlark.Callable
}

var _ Engine = (*Script)(nil)

// NewScript compiles a script. src may be a string, []byte, or io.Reader,
// as accepted by starlark.ExecFile.
func NewScript(name string, src any) (script *Script, err error) {
	thread := &starlark.Thread{Name: name, Print: scriptPrint}
	opts := syntax.FileOptions{}

	globals, err := starlark.ExecFileOptions(&opts, thread, name, src, scriptPredeclared)
	if err != nil {
		err = &ErrScript{Name: name, Err: err}
		return
	}

	value, ok := globals[SCRIPT_ENTRY]
	if !ok {
		err = &ErrScript{Name: name, Err: ErrScriptMissing}
		return
	}

	fn, ok := value.(starlark.Callable)
	if !ok {
		err = &ErrScript{Name: name, Err: ErrScriptCallable}
		return
	}

	script = &Script{
		Name:    name,
		execute: fn,
	}

	return
}

func scriptPrint(thread *starlark.Thread, msg string) {
	log.Printf("engine: %v: %v", thread.Name, msg)
}

// instructionTuple returns the buffer as a tuple of ints.
func instructionTuple(ins *buffer.Instructions) starlark.Tuple {
	tuple := make(starlark.Tuple, len(ins))
	for n, b := range ins {
		tuple[n] = starlark.MakeInt(int(b))
	}
	return tuple
}

// Step runs the script once. On error the registers are not modified.
func (script *Script) Step(regs *buffer.Registers, ins *buffer.Instructions) (err error) {
	defer func() {
		if err != nil {
			err = &ErrScript{Name: script.Name, Err: err}
		}
	}()

	values := make([]starlark.Value, len(regs))
	for n, reg := range regs {
		values[n] = starlark.MakeInt(int(reg))
	}
	list := starlark.NewList(values)

	thread := &starlark.Thread{Name: script.Name, Print: scriptPrint}
	args := starlark.Tuple{list, instructionTuple(ins)}
	_, err = starlark.Call(thread, script.execute, args, nil)
	if err != nil {
		return
	}

	if list.Len() != len(regs) {
		err = ErrRegisterCount
		return
	}

	var result buffer.Registers
	for n := range result {
		value, ok := list.Index(n).(starlark.Int)
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		word, ok := value.Int64()
		if !ok || word < math.MinInt32 || word > math.MaxUint32 {
			err = ErrRegisterInvalid
			return
		}
		result[n] = int32(uint32(word))
	}

	*regs = result

	return
}

// Execute runs the script, logging any failure. The engine contract has no
// error result, so a failing script leaves the registers unchanged.
func (script *Script) Execute(regs *buffer.Registers, ins *buffer.Instructions) {
	err := script.Step(regs, ins)
	if err != nil {
		log.Printf("engine: %v", err)
		return
	}

	if script.Verbose {
		log.Printf("engine: %v: executed", script.Name)
	}
}
