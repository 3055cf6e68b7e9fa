// Package render turns processed frames into chart payloads through an
// ordered chain of engines.
package render

import (
	"fmt"
	"log"
	"strings"

	"vizora/domain/chart"
	"vizora/domain/dataset"
	"vizora/ports"
)

// Renderer tries every engine in order. The first success supplies the
// result; every attempt is recorded.
type Renderer struct {
	engines []ports.ChartEngine
}

func NewRenderer(engines ...ports.ChartEngine) *Renderer {
	return &Renderer{engines: engines}
}

// NewDefaultRenderer prefers the interactive engine and falls back to PNG.
func NewDefaultRenderer() *Renderer {
	return NewRenderer(NewInteractiveEngine(), NewStaticEngine())
}

// Render never panics and never returns an error; total failure is reported
// in ChartResult.Error.
func (r *Renderer) Render(frame *dataset.Table, spec chart.ChartSpec) chart.ChartResult {
	result := chart.ChartResult{Attempts: make([]chart.EngineOutput, 0, len(r.engines))}
	var failures []string

	for _, engine := range r.engines {
		payload, err := safeRender(engine, frame, spec)
		out := chart.EngineOutput{Engine: engine.Name()}
		if err != nil {
			out.Error = err.Error()
			failures = append(failures, fmt.Sprintf("%s: %s", engine.Name(), out.Error))
			log.Printf("[Renderer] %s engine failed for %s chart: %v", engine.Name(), spec.Chart, err)
		} else {
			out.Payload = payload
			if !result.OK() {
				result.Engine, result.Payload = engine.Name(), payload
			}
		}
		result.Attempts = append(result.Attempts, out)
	}

	if !result.OK() {
		if len(failures) == 0 {
			failures = append(failures, "no chart engines configured")
		}
		result.Error = strings.Join(failures, "; ")
	}
	return result
}

func safeRender(engine ports.ChartEngine, frame *dataset.Table, spec chart.ChartSpec) (payload any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			payload = nil
			err = fmt.Errorf("%s engine panicked: %v", engine.Name(), rec)
		}
	}()
	return engine.Render(frame, spec)
}
