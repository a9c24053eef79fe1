package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrEmptyDataset     = errors.New("dataset has no analyzable columns")
	ErrColumnNotFound   = errors.New("column not found in dataset")
	ErrQueueSaturated   = errors.New("task queue is full")
	ErrRemoteCacheDown  = errors.New("remote cache unavailable")
	ErrSynthesizer      = errors.New("answer synthesizer failed")
	ErrSessionCorrupted = errors.New("session entry could not be decoded")
)
