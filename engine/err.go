package engine

import (
	"errors"

	"github.com/ezrec/ubit/translate"
)

var f = translate.From

var (
	ErrScriptMissing   = errors.New(f("script does not define execute()"))
	ErrScriptCallable  = errors.New(f("script execute is not callable"))
	ErrRegisterCount   = errors.New(f("registers list resized"))
	ErrRegisterInvalid = errors.New(f("register is not a 32-bit integer"))
)

// ErrScript locates a failure inside an engine script.
type ErrScript struct {
	Name string
	Err  error
}

func (err *ErrScript) Error() string {
	return f("%v: %v", err.Name, err.Err)
}

func (err *ErrScript) Unwrap() error {
	return err.Err
}
