package errors

import "errors"

var (
	// Bird index errors
	ErrBirdExists       = errors.New("bird already registered in index")
	ErrBirdNotFound     = errors.New("bird not found in index")
	ErrInvalidDimension = errors.New("invalid embedding dimension")
	ErrIndexLocked      = errors.New("index directory locked by another process")

	// Store errors
	ErrRecordNotFound = errors.New("record not found")
)
