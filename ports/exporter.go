package ports

import (
	"io"

	"vizora/domain/chart"
	"vizora/domain/dataset"
)

// ChartExporter writes a processed frame and a native chart of it to w.
type ChartExporter interface {
	Export(w io.Writer, frame *dataset.Table, spec chart.ChartSpec, title string) error
}
