package buffer

import (
	"github.com/ezrec/ubit/translate"
)

var f = translate.From

// ErrSlotRange is returned when a store addresses a slot outside [0, SLOT_COUNT).
type ErrSlotRange int

func (err ErrSlotRange) Error() string {
	return f("slot %d out of range", int(err))
}
