package model

import "github.com/pkg/errors"

var (
	ErrSchema     = errors.New("schema error")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrDuplicate  = errors.New("duplicate entry")
	ErrType       = errors.New("type error")
	ErrCategory   = errors.New("category must be one of {input, output, parameters}")
)
