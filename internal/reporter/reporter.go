package reporter

// Reporter defines the interface for progress reporting.
type Reporter interface {
	ExportStarted(summary ExportSummary)
	ExportProgress(progress ProgressSnapshot)
	ExportComplete(outcome ExportOutcome)
	ProbeResult(summary ProbeSummary)
	Warning(message string)
	Error(err ReporterError)
	Verbose(message string)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) ExportStarted(ExportSummary)     {}
func (NullReporter) ExportProgress(ProgressSnapshot) {}
func (NullReporter) ExportComplete(ExportOutcome)    {}
func (NullReporter) ProbeResult(ProbeSummary)        {}
func (NullReporter) Warning(string)                  {}
func (NullReporter) Error(ReporterError)             {}
func (NullReporter) Verbose(string)                  {}
