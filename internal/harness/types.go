package harness

// TraceEvent records one flow step.
type TraceEvent struct {
	Seq   int    `json:"seq"`
	Op    string `json:"op"`
	Actor string `json:"actor,omitempty"`
	// Task is the scenario key of the task the step acted on.
	Task string `json:"task,omitempty"`
	// Outcome is "ok" or the engine error code.
	Outcome string `json:"outcome"`
	// Status is the task status after a successful transition.
	Status string `json:"status,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step met its expectation and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Final maps each task key to its status when the flow ended.
	Final map[string]string `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Final:  map[string]string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event, numbering it.
func (r *Result) AddTrace(ev TraceEvent) {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}
