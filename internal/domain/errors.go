package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnsupportedModel = errors.New("unsupported model")
	ErrAlreadyFinished  = errors.New("task already finished")
)
