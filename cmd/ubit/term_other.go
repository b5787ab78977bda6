// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

//go:build !linux && !darwin

package main

func enterRawTerm() error {
	return ErrRawTerm
}

func exitRawTerm() {}
