// Package domain contains the core entities for classifying CT pulmonary angiogram
// impressions for pulmonary embolism (PE).
//
// A report is annotated three times, once per analysis Mode, and the resulting
// mention evidence is reduced to four categorical labels: disease status,
// uncertainty, historicity and exam quality.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Mode identifies one of the three independent analysis passes run per report.
type Mode int

const (
	DISEASE Mode = iota
	QUALITY
	QUALITY2
)

// Modes returns every analysis mode in processing order.
func Modes() []Mode {
	return []Mode{DISEASE, QUALITY, QUALITY2}
}

// String returns the lexicon key of the mode.
func (m Mode) String() string {
	switch m {
	case DISEASE:
		return "disease"
	case QUALITY:
		return "quality"
	case QUALITY2:
		return "quality2"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// IsValid reports whether m is one of the three known modes.
func (m Mode) IsValid() bool {
	return m >= DISEASE && m <= QUALITY2
}

// ParseMode maps a lexicon key back to its Mode.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes() {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Flag names a modifier relation carried by a mention record.
// A flag is the lower-cased category of a linked modifier.
type Flag string

const (
	UNMODIFIED                 Flag = "unmodified"
	PSEUDONEG                  Flag = "pseudoneg"
	DEFINITE_NEGATED_EXISTENCE Flag = "definite_negated_existence"
	PROBABLE_NEGATED_EXISTENCE Flag = "probable_negated_existence"
	PROBABLE_EXISTENCE         Flag = "probable_existence"
	DEFINITE_EXISTENCE         Flag = "definite_existence"
	INDICATION                 Flag = "indication"
	HISTORICAL                 Flag = "historical"
	QUALITY_FEATURE            Flag = "quality_feature"
)

// FlagForCategory converts a lexicon category such as "DEFINITE_NEGATED_EXISTENCE"
// into the flag name used on mention records.
func FlagForCategory(category string) Flag {
	return Flag(strings.ToLower(strings.TrimSpace(category)))
}

// DiseaseState is the PE disease label.
type DiseaseState string

const (
	DISEASE_POS DiseaseState = "Pos"
	DISEASE_NEG DiseaseState = "Neg"
)

// UncertaintyState records whether the disease label is uncertain.
type UncertaintyState string

const (
	UNCERTAIN     UncertaintyState = "Yes"
	NOT_UNCERTAIN UncertaintyState = "No"
)

// HistoricalState records whether a positive finding is old or new.
// It is NA whenever the disease label is negative.
type HistoricalState string

const (
	HISTORICAL_OLD HistoricalState = "Old"
	HISTORICAL_NEW HistoricalState = "New"
	HISTORICAL_NA  HistoricalState = "NA"
)

// QualityState is the diagnostic quality of the exam.
type QualityState string

const (
	DIAGNOSTIC     QualityState = "Diagnostic"
	NOT_DIAGNOSTIC QualityState = "Not Diagnostic"
)

// Validation errors for labels and inputs
var (
	ErrInvalidLabel    = errors.New("invalid classification label")
	ErrUnknownMode     = errors.New("unknown analysis mode")
	ErrSameStore       = errors.New("output database must be distinct from input database")
	ErrDuplicateReport = errors.New("duplicate report id")
	ErrInputNotFound   = errors.New("input database not found")
	ErrInvalidTable    = errors.New("invalid table name")
)

// IsValid reports whether the disease label is Pos or Neg.
func (s DiseaseState) IsValid() bool {
	return s == DISEASE_POS || s == DISEASE_NEG
}

func (s DiseaseState) String() string { return string(s) }

// IsValid reports whether the uncertainty label is Yes or No.
func (s UncertaintyState) IsValid() bool {
	return s == UNCERTAIN || s == NOT_UNCERTAIN
}

func (s UncertaintyState) String() string { return string(s) }

// IsValid reports whether the historical label is Old, New or NA.
func (s HistoricalState) IsValid() bool {
	switch s {
	case HISTORICAL_OLD, HISTORICAL_NEW, HISTORICAL_NA:
		return true
	default:
		return false
	}
}

func (s HistoricalState) String() string { return string(s) }

// IsValid reports whether the quality label is Diagnostic or Not Diagnostic.
func (s QualityState) IsValid() bool {
	return s == DIAGNOSTIC || s == NOT_DIAGNOSTIC
}

func (s QualityState) String() string { return string(s) }

// Report is one input row: an externally assigned id and the impression text.
type Report struct {
	ID         int64  `json:"id"`
	Impression string `json:"impression"`
}

// ClassificationResult holds the four labels computed for one report.
type ClassificationResult struct {
	ReportID    int64            `json:"id"`
	Disease     DiseaseState     `json:"disease"`
	Uncertainty UncertaintyState `json:"uncertainty"`
	Historical  HistoricalState  `json:"historical"`
	Quality     QualityState     `json:"quality"`
}

// Validate checks every label and the rule that historicity is NA exactly when
// the disease label is negative.
func (r *ClassificationResult) Validate() error {
	if !r.Disease.IsValid() {
		return fmt.Errorf("disease %q: %w", r.Disease, ErrInvalidLabel)
	}
	if !r.Uncertainty.IsValid() {
		return fmt.Errorf("uncertainty %q: %w", r.Uncertainty, ErrInvalidLabel)
	}
	if !r.Historical.IsValid() {
		return fmt.Errorf("historical %q: %w", r.Historical, ErrInvalidLabel)
	}
	if !r.Quality.IsValid() {
		return fmt.Errorf("quality %q: %w", r.Quality, ErrInvalidLabel)
	}
	if (r.Disease == DISEASE_NEG) != (r.Historical == HISTORICAL_NA) {
		return fmt.Errorf("historical %q with disease %q: %w", r.Historical, r.Disease, ErrInvalidLabel)
	}
	return nil
}

// LogFields returns structured logging fields for progress reporting.
func (r *ClassificationResult) LogFields() map[string]any {
	return map[string]any{
		"report_id":   r.ReportID,
		"disease":     string(r.Disease),
		"uncertainty": string(r.Uncertainty),
		"historical":  string(r.Historical),
		"quality":     string(r.Quality),
	}
}
