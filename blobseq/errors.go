package blobseq

import "errors"

var (
	// ErrInvalidArgument is returned when the sequence is nil or destroyed,
	// or when Insert is given nil or empty data.
	ErrInvalidArgument = errors.New("blobseq: invalid argument")

	// ErrOutOfRange is returned by Get for a position outside [0, Len()).
	ErrOutOfRange = errors.New("blobseq: position out of range")

	// ErrAllocation is returned when storage for the entry table or for
	// a blob copy could not be obtained.
	ErrAllocation = errors.New("blobseq: allocation failed")
)
