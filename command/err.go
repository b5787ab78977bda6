package command

import (
	"github.com/ezrec/ubit/translate"
)

var f = translate.From

// ErrReply indicates the transport failed while replying to a command.
type ErrReply struct {
	Command Command
	Err     error
}

func (err *ErrReply) Error() string {
	return f("%v reply: %v", err.Command, err.Err)
}

func (err *ErrReply) Unwrap() error {
	return err.Err
}
