package model

import "time"

// PipelineOption defines the interface for pipeline options.
type PipelineOption interface {
	// New initialises the pipeline option.
	New() error
	// PrepareStage runs once per stage while the pipeline is built, after the
	// stage has been linked to its parents. Root stages have StartStage as parent
	// and EndStage is prepared last with every leaf stage as parent.
	PrepareStage(parents []*StageInfo, stage *StageInfo) error
	// OnStageStart runs right after the command of the stage has been launched.
	OnStageStart(stage *StageInfo) error
	// OnStageDone runs once the command of the stage has completed.
	OnStageDone(stage *StageInfo, elapsed time.Duration) error
	// Finish runs after the pipeline is finished.
	Finish() error
}
