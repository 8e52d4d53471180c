package drawer

import (
	"time"

	"github.com/askiada/go-mindpipe/pkg/pipeline/measure"
	"github.com/askiada/go-mindpipe/pkg/pipeline/model"
)

// Drawer is an interface that defines the methods for drawing a pipeline.
type Drawer interface {
	// AddStage adds a stage to the pipeline drawer.
	AddStage(stageName string) error
	// AddLink adds a link between a parent and a child stage, labelled with the datatypes it carries.
	AddLink(parentStageName, childStageName, label string) error
	// SetStatus colours the stage after its status.
	SetStatus(stageName string, status model.Status) error
	// SetTotalTime sets the total time for the stage.
	SetTotalTime(stageName string, startTime time.Time) error
	// AddMeasure adds a measure to the pipeline drawer.
	AddMeasure(measure measure.Measure) error
	// Draw creates a file with the pipeline graph.
	Draw() error
}
