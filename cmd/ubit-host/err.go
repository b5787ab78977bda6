package main

import (
	"github.com/ezrec/ubit/translate"
)

var f = translate.From

// ErrCommandUnknown is returned for a command name that is not known.
type ErrCommandUnknown string

func (err ErrCommandUnknown) Error() string {
	return f("unknown command '%v'", string(err))
}

// ErrArgumentCount is returned when a command has the wrong argument count.
type ErrArgumentCount struct {
	Command string
	Want    int
	Got     int
}

func (err *ErrArgumentCount) Error() string {
	return f("%v: expected %d arguments, got %d", err.Command, err.Want, err.Got)
}

// ErrLocation is returned for a memory location that is not a number.
type ErrLocation struct {
	Text string
	Err  error
}

func (err *ErrLocation) Error() string {
	return f("store: location '%v': %v", err.Text, err.Err)
}

func (err *ErrLocation) Unwrap() error {
	return err.Err
}
