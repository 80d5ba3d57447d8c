// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/licsalert/licsalert/internal/contract"
	"github.com/licsalert/licsalert/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteAlert prints a licsalert result using the configured output format.
func (ow *OutWriter) WriteAlert(result schema.EnrichedAlertResult, cfg *contract.Config, duration time.Duration) error {
	return WriteAlertResults(result, cfg, duration)
}

// WriteAcquisitions prints a daisy-chain report using the configured output format.
func (ow *OutWriter) WriteAcquisitions(report schema.AcquisitionReport, cfg *contract.Config) error {
	return WriteAcquisitionReport(report, cfg)
}
