package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pe-finder/internal/annotation"
	"github.com/pe-finder/internal/domain"
	"github.com/pe-finder/internal/query"
)

// Analyzer runs one analysis pass over report text.
type Analyzer interface {
	Run(text string, mode domain.Mode, flags []domain.Flag) (*query.Model, error)
}

// RunSummary tallies the labels written by one pipeline run.
type RunSummary struct {
	RunID       string                          `json:"run_id"`
	Total       int                             `json:"total"`
	Processed   int                             `json:"processed"`
	Disease     map[domain.DiseaseState]int     `json:"disease"`
	Uncertainty map[domain.UncertaintyState]int `json:"uncertainty"`
	Historical  map[domain.HistoricalState]int  `json:"historical"`
	Quality     map[domain.QualityState]int     `json:"quality"`
	Duration    time.Duration                   `json:"duration_ns"`
}

func newRunSummary(runID string, total int) *RunSummary {
	return &RunSummary{
		RunID:       runID,
		Total:       total,
		Disease:     make(map[domain.DiseaseState]int),
		Uncertainty: make(map[domain.UncertaintyState]int),
		Historical:  make(map[domain.HistoricalState]int),
		Quality:     make(map[domain.QualityState]int),
	}
}

func (s *RunSummary) add(r *domain.ClassificationResult) {
	s.Processed++
	s.Disease[r.Disease]++
	s.Uncertainty[r.Uncertainty]++
	s.Historical[r.Historical]++
	s.Quality[r.Quality]++
}

// Pipeline classifies every input report and records the results.
type Pipeline struct {
	source     domain.ReportSource
	writer     domain.ResultWriter
	analyzer   Analyzer
	classifier *ClinicalStateClassifier
	logger     *logrus.Logger
}

// NewPipeline creates a new report processing pipeline
func NewPipeline(
	source domain.ReportSource,
	writer domain.ResultWriter,
	analyzer Analyzer,
	logger *logrus.Logger,
) *Pipeline {
	return &Pipeline{
		source:     source,
		writer:     writer,
		analyzer:   analyzer,
		classifier: NewClinicalStateClassifier(logger),
		logger:     logger,
	}
}

// Run processes all reports one at a time. The first failure rolls the output
// back and aborts the run; results become visible only after every report is
// recorded.
func (p *Pipeline) Run(ctx context.Context) (summary *RunSummary, err error) {
	startTime := time.Now()
	runID := uuid.NewString()
	logger := p.logger.WithField("run_id", runID)

	defer func() {
		if err == nil {
			return
		}
		if rbErr := p.writer.Rollback(); rbErr != nil {
			logger.WithError(rbErr).Warn("Failed to roll back results")
		}
	}()

	// Step 1: Read every report up front
	reports, err := p.source.Reports(ctx)
	if err != nil {
		return nil, domain.NewPipelineError(domain.ErrStore, "reading reports", 0, err)
	}
	logger.WithField("total", len(reports)).Info("Number of reports to process")

	summary = newRunSummary(runID, len(reports))
	for _, report := range reports {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run interrupted after %d reports: %w", summary.Processed, err)
		}

		// Step 2: Annotate and classify
		result, err := p.ClassifyReport(report)
		if err != nil {
			return nil, err
		}

		// Step 3: Persist
		if err := p.writer.Record(ctx, result); err != nil {
			code := domain.ErrStore
			if errors.Is(err, domain.ErrDuplicateReport) {
				code = domain.ErrPersistenceConflict
			}
			return nil, domain.NewPipelineError(code, "recording result", report.ID, err)
		}

		summary.add(result)
		logger.WithFields(logrus.Fields(result.LogFields())).
			WithField("processed", summary.Processed).
			Info("Report classified")
	}

	// Step 4: Publish the run
	if err := p.writer.Commit(); err != nil {
		return nil, domain.NewPipelineError(domain.ErrStore, "committing results", 0, err)
	}

	summary.Duration = time.Since(startTime)
	logger.WithFields(logrus.Fields{
		"processed": summary.Processed,
		"duration":  summary.Duration,
	}).Infof("Processed %d cases", summary.Processed)

	return summary, nil
}

// ClassifyReport runs the three passes over a report and applies the clinical
// rules. Every pass builds its model from scratch.
func (p *Pipeline) ClassifyReport(report domain.Report) (*domain.ClassificationResult, error) {
	text := strings.ToLower(report.Impression)

	var models [3]*query.Model
	for _, mode := range domain.Modes() {
		model, err := p.analyzer.Run(text, mode, annotation.RelevantFlags(mode))
		if err != nil {
			return nil, domain.NewPipelineError(domain.ErrAnnotation, fmt.Sprintf("%s pass failed", mode), report.ID, err)
		}
		p.logger.WithFields(logrus.Fields{
			"report_id": report.ID,
			"mode":      mode.String(),
			"mentions":  model.Len(),
		}).Debug("Pass annotated")
		models[mode] = model
	}

	result := p.classifier.Classify(report.ID, Evidence{
		Disease:  models[domain.DISEASE],
		Quality:  models[domain.QUALITY],
		Quality2: models[domain.QUALITY2],
	})
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("classifying report %d: %w", report.ID, err)
	}
	return result, nil
}
