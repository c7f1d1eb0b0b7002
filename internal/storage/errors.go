package storage

import "errors"

var (
	ErrStoreUnreachable  = errors.New("vector store unreachable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrInvalidRecord     = errors.New("record failed validation")
	ErrNotFound          = errors.New("record not found")
)
