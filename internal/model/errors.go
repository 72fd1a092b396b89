package model

import "errors"

var (
	ErrLoadFailure      = errors.New("load failure")
	ErrInferenceFailure = errors.New("inference failure")
	ErrInvalidInput     = errors.New("invalid input tensor")
)
