package drawer

import (
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-mindpipe/pkg/pipeline/measure"
	"github.com/askiada/go-mindpipe/pkg/pipeline/model"
)

type pipelineDrawer struct {
	Drawer
	m         measure.Measure
	startTime time.Time
}

func (pd *pipelineDrawer) New() error {
	pd.startTime = time.Now()

	err := pd.AddStage(model.StartStage.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add start stage to drawer")
	}

	err = pd.AddStage(model.EndStage.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add end stage to drawer")
	}

	return nil
}

func (pd *pipelineDrawer) PrepareStage(parents []*model.StageInfo, stage *model.StageInfo) error {
	err := pd.AddStage(stage.Name)
	if err != nil {
		return err
	}

	if stage.Name != model.EndStage.Name {
		err = pd.SetStatus(stage.Name, model.StatusPending)
		if err != nil {
			return err
		}
	}

	for _, parent := range parents {
		err := pd.AddLink(parent.Name, stage.Name, linkLabel(parent, stage))
		if err != nil {
			return err
		}
	}

	return nil
}

// linkLabel lists the datatypes the parent provides to the stage.
func linkLabel(parent, stage *model.StageInfo) string {
	shared := []string{}

	for _, out := range parent.Outputs {
		if slices.Contains(stage.Inputs, out) {
			shared = append(shared, out)
		}
	}

	return strings.Join(shared, ", ")
}

func (pd *pipelineDrawer) OnStageStart(stage *model.StageInfo) error {
	return pd.SetStatus(stage.Name, model.StatusRunning)
}

func (pd *pipelineDrawer) OnStageDone(stage *model.StageInfo, _ time.Duration) error {
	return pd.SetStatus(stage.Name, stage.Status)
}

func (pd *pipelineDrawer) Finish() error {
	if pd.m != nil {
		err := pd.SetTotalTime(model.EndStage.Name, pd.startTime)
		if err != nil {
			return errors.Wrap(err, "unable to set total time")
		}

		err = pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err := pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// PipelineDrawer draws the stage graph with drawer once the pipeline is
// finished. Stages are coloured after their status. When measure is not nil,
// its durations are added to the drawing.
func PipelineDrawer(drawer Drawer, measure measure.Measure) model.PipelineOption {
	return &pipelineDrawer{Drawer: drawer, m: measure, startTime: time.Now()}
}
