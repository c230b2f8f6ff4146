package domain

import (
	"context"
)

// ReportSource supplies the reports to classify. Reports are read once, up front.
type ReportSource interface {
	Reports(ctx context.Context) ([]Report, error)
}

// ResultWriter persists classification results keyed by report id.
// Record must fail with ErrDuplicateReport rather than overwrite an existing id.
// Nothing recorded is visible until Commit; Rollback discards the run.
type ResultWriter interface {
	Record(ctx context.Context, result *ClassificationResult) error
	Commit() error
	Rollback() error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	Validate() error
}
