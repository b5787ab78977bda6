package host

import (
	"errors"

	"github.com/ezrec/ubit/translate"
)

var f = translate.From

var (
	ErrIncompleteInstruction = errors.New(f("each instruction must be exactly 4 hexadecimal digits"))
)

// ErrTooManyInstructions is returned when a program exceeds MAX_INSTRUCTIONS.
type ErrTooManyInstructions int

func (err ErrTooManyInstructions) Error() string {
	return f("%d instructions, at most %d can be executed", int(err), MAX_INSTRUCTIONS)
}

// ErrInvalidInstruction identifies an instruction that is not hexadecimal.
type ErrInvalidInstruction struct {
	Index int    // Instruction number, from 1.
	Text  string // Instruction text.
}

func (err ErrInvalidInstruction) Error() string {
	return f("instruction %d '%v' is not 4 hexadecimal digits", err.Index, err.Text)
}

// ErrLocationRange is returned for a memory location outside [0, LOCATION_COUNT).
type ErrLocationRange int

func (err ErrLocationRange) Error() string {
	return f("memory location %d must be in the range 0 - %d", int(err), LOCATION_COUNT-1)
}

// ErrWordRange is returned when a memory value is not 1 to 8 hexadecimal digits.
type ErrWordRange string

func (err ErrWordRange) Error() string {
	return f("'%v' is not a 32-bit hexadecimal value", string(err))
}

// ErrUnexpectedRecord is returned when the device replies with a record
// that does not belong to the command's reply.
type ErrUnexpectedRecord byte

func (err ErrUnexpectedRecord) Error() string {
	return f("unexpected record %d", byte(err))
}

// Assembler errors
var (
	ErrInstructionInvalid = errors.New(f("invalid, or unsupported, instruction"))
	ErrOperandSyntax      = errors.New(f("operand syntax"))
	ErrLabelSyntax        = errors.New(f("label syntax"))
)

// ErrOperandRange is returned for an immediate or register that does not fit
// its instruction field.
type ErrOperandRange int64

func (err ErrOperandRange) Error() string {
	return f("operand %d out of range", int64(err))
}

// ErrBranchRange is returned for a branch target beyond the reach of its
// instruction.
type ErrBranchRange string

func (err ErrBranchRange) Error() string {
	return f("label %v out of branch range", string(err))
}

// ErrLabelMissing is returned for a branch to an undefined label.
type ErrLabelMissing string

func (err ErrLabelMissing) Error() string {
	return f("label %v missing", string(err))
}

// ErrLabelDuplicate is returned for a label defined twice.
type ErrLabelDuplicate string

func (err ErrLabelDuplicate) Error() string {
	return f("label %v duplicated", string(err))
}

// ErrSyntax identifies the source line of an assembler error.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d: %v: %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}
