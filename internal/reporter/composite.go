package reporter

// CompositeReporter fans out events to multiple reporters.
type CompositeReporter struct {
	reporters []Reporter
}

// NewCompositeReporter creates a composite reporter.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return &CompositeReporter{reporters: reporters}
}

func (c *CompositeReporter) ExportStarted(summary ExportSummary) {
	for _, r := range c.reporters {
		r.ExportStarted(summary)
	}
}

func (c *CompositeReporter) ExportProgress(progress ProgressSnapshot) {
	for _, r := range c.reporters {
		r.ExportProgress(progress)
	}
}

func (c *CompositeReporter) ExportComplete(outcome ExportOutcome) {
	for _, r := range c.reporters {
		r.ExportComplete(outcome)
	}
}

func (c *CompositeReporter) ProbeResult(summary ProbeSummary) {
	for _, r := range c.reporters {
		r.ProbeResult(summary)
	}
}

func (c *CompositeReporter) Warning(message string) {
	for _, r := range c.reporters {
		r.Warning(message)
	}
}

func (c *CompositeReporter) Error(err ReporterError) {
	for _, r := range c.reporters {
		r.Error(err)
	}
}

func (c *CompositeReporter) Verbose(message string) {
	for _, r := range c.reporters {
		r.Verbose(message)
	}
}
