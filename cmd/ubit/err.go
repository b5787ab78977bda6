package main

import (
	"errors"

	"github.com/ezrec/ubit/translate"
)

var f = translate.From

var (
	ErrRawTerm = errors.New(f("raw terminal mode is not supported"))
)
