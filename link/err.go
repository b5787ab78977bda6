package link

import (
	"github.com/ezrec/ubit/translate"
)

var f = translate.From

// ErrSerial indicates a serial port could not be opened.
type ErrSerial struct {
	Port string
	Err  error
}

func (err *ErrSerial) Error() string {
	return f("serial %v: %v", err.Port, err.Err)
}

func (err *ErrSerial) Unwrap() error {
	return err.Err
}
