package services

import "time"

// Metrics receives counters from the background services
type Metrics interface {
	RecordIconResolution(source string)
	RecordEmailsExtracted(count int)
	RecordEnrichment(outcome string, duration time.Duration)
	RecordAsyncTask(kind string, delta int)
}

// Icon resolution sources
const (
	IconSourceRule        = "rule"
	IconSourceFavicon     = "favicon"
	IconSourcePlaceholder = "placeholder"
)

// Enrichment outcomes
const (
	EnrichmentMerged     = "merged"
	EnrichmentStale      = "stale"
	EnrichmentFailed     = "failed"
	EnrichmentDisabled   = "disabled"
	EnrichmentPivotsOnly = "pivots_only"
)

type nopMetrics struct{}

func (nopMetrics) RecordIconResolution(string)            {}
func (nopMetrics) RecordEmailsExtracted(int)              {}
func (nopMetrics) RecordEnrichment(string, time.Duration) {}
func (nopMetrics) RecordAsyncTask(string, int)            {}

// NopMetrics discards everything
func NopMetrics() Metrics { return nopMetrics{} }
