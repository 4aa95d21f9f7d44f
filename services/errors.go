package services

import (
	"errors"
	"fmt"
)

// Error sentinel untuk dipetakan ke kode HTTP di controller (pakai errors.Is).
// ErrTerminalTable membungkus ErrInvalidTransition: dari sisi caller keduanya
// kelas yang sama (operasi tidak legal dari state sekarang).
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrTerminalTable     = fmt.Errorf("%w: table is in a terminal status", ErrInvalidTransition)
	ErrValidation        = errors.New("validation failed")
)
