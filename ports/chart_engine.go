package ports

import (
	"vizora/domain/chart"
	"vizora/domain/dataset"
)

// ChartEngine renders one processed frame. Render must not panic on bad
// input; failures are reported as errors.
type ChartEngine interface {
	Name() chart.Engine
	Render(frame *dataset.Table, spec chart.ChartSpec) (any, error)
}
