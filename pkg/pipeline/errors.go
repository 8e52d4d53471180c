package pipeline

import (
	"github.com/pkg/errors"
)

var (
	ErrCycle           = errors.New("stage dependencies form a cycle")
	ErrUnresolvedInput = errors.New("no stage produces the input")
	ErrAmbiguousInput  = errors.New("more than one stage produces the input")
	ErrAlreadyRun      = errors.New("pipeline has already been run")
	ErrStageFailed     = errors.New("stage failed")
	ErrNoStages        = errors.New("settings must name at least one stage")
)
