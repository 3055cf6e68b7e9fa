package chart

// Engine names a rendering backend.
type Engine string

const (
	EngineInteractive Engine = "interactive"
	EngineStatic      Engine = "static"
)

// EngineOutput is one engine's attempt. Exactly one of Payload and Error is set.
type EngineOutput struct {
	Engine  Engine `json:"engine"`
	Payload any    `json:"payload"`
	Error   string `json:"error,omitempty"`
}

// ChartResult is the outcome of running the engine chain.
type ChartResult struct {
	Engine   Engine         `json:"engine,omitempty"`
	Payload  any            `json:"payload"`
	Error    string         `json:"error,omitempty"`
	Attempts []EngineOutput `json:"attempts"`
}

// OK reports whether some engine produced a payload.
func (r ChartResult) OK() bool { return r.Engine != "" }

// Attempt returns the output of one engine, if it ran.
func (r ChartResult) Attempt(e Engine) (EngineOutput, bool) {
	for _, a := range r.Attempts {
		if a.Engine == e {
			return a, true
		}
	}
	return EngineOutput{}, false
}
