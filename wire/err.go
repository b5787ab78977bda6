package wire

import (
	"errors"

	"github.com/ezrec/ubit/translate"
)

var f = translate.From

var (
	ErrPayloadSize = errors.New(f("payload exceeds packet"))
)

// ErrReplySize is returned when a reply is not exactly REPLY_SIZE bytes.
type ErrReplySize int

func (err ErrReplySize) Error() string {
	return f("reply of %d bytes, expected %d", int(err), REPLY_SIZE)
}

// ErrReplyTag is returned for a reply with an unknown tag.
type ErrReplyTag byte

func (err ErrReplyTag) Error() string {
	return f("reply tag %d unknown", byte(err))
}
