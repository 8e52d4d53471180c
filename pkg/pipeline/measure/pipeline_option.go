package measure

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-mindpipe/pkg/pipeline/model"
)

type pipelineMeasure struct {
	Measure

	mu        sync.Mutex
	startTime time.Time
	parents   map[string][]string
	ended     map[string]time.Time
}

func (pm *pipelineMeasure) New() error {
	pm.startTime = time.Now()
	pm.AddMetric(model.StartStage.Name)
	pm.AddMetric(model.EndStage.Name)

	return nil
}

func (pm *pipelineMeasure) PrepareStage(parents []*model.StageInfo, stage *model.StageInfo) error {
	if stage.Name != model.EndStage.Name {
		pm.AddMetric(stage.Name)
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	for _, parent := range parents {
		pm.parents[stage.Name] = append(pm.parents[stage.Name], parent.Name)
	}

	return nil
}

func (pm *pipelineMeasure) OnStageStart(stage *model.StageInfo) error {
	mt := pm.GetMetric(stage.Name)
	if mt == nil {
		return errors.Errorf("no metric for stage %s", stage.Name)
	}

	now := time.Now()

	pm.mu.Lock()
	defer pm.mu.Unlock()

	for _, parent := range pm.parents[stage.Name] {
		if parent == model.StartStage.Name {
			mt.AddTransportDuration(parent, now.Sub(pm.startTime))

			continue
		}

		if end, ok := pm.ended[parent]; ok {
			mt.AddTransportDuration(parent, now.Sub(end))
		}
	}

	return nil
}

func (pm *pipelineMeasure) OnStageDone(stage *model.StageInfo, elapsed time.Duration) error {
	mt := pm.GetMetric(stage.Name)
	if mt == nil {
		return errors.Errorf("no metric for stage %s", stage.Name)
	}

	mt.AddDuration(elapsed)

	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.ended[stage.Name] = time.Now()

	return nil
}

func (pm *pipelineMeasure) Finish() error {
	pm.GetMetric(model.EndStage.Name).SetTotalDuration(time.Since(pm.startTime))

	return nil
}

// PipelineMeasure records the duration of every stage into measure.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{
		Measure: measure,
		parents: map[string][]string{},
		ended:   map[string]time.Time{},
	}
}
