package command

import "github.com/pkg/errors"

var (
	ErrInvalidProfile = errors.New("invalid profile")
	ErrEmptyCommand   = errors.New("command must not be empty")
	ErrNotRun         = errors.New("please run the command before requesting its output")
	ErrAlreadyStarted = errors.New("command already started")
	ErrProcessTimeout = errors.New("process timed out")
)
