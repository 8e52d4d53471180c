package model

// Status is the outcome of a stage as seen by the pipeline.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusTimeout Status = "timeout"
)

// StageInfo is the view of a stage handed to pipeline options.
type StageInfo struct {
	Name    string
	Inputs  []string
	Outputs []string
	Status  Status
}

var (
	StartStage = &StageInfo{Name: "start"}
	EndStage   = &StageInfo{Name: "end"}
)
