package service

import (
	"github.com/sirupsen/logrus"

	"github.com/pe-finder/internal/domain"
	"github.com/pe-finder/internal/query"
)

// Evidence is the three per-mode mention models of one report.
type Evidence struct {
	Disease  *query.Model
	Quality  *query.Model
	Quality2 *query.Model
}

var (
	isUnmodified   = query.Is(domain.UNMODIFIED)
	isIndication   = query.Is(domain.INDICATION)
	isHistorical   = query.Is(domain.HISTORICAL)
	isProbable     = query.Is(domain.PROBABLE_EXISTENCE)
	isDefiniteNeg  = query.Is(domain.DEFINITE_NEGATED_EXISTENCE)
	isProbableNeg  = query.Is(domain.PROBABLE_NEGATED_EXISTENCE)
	isQualityIssue = query.Is(domain.QUALITY_FEATURE)
	notNegated     = query.And(query.Eq(domain.PROBABLE_NEGATED_EXISTENCE, false), query.Eq(domain.DEFINITE_NEGATED_EXISTENCE, false))
)

// affirmedFinding is a definite or probable mention with nothing contradicting it.
var affirmedFinding = query.And(
	query.Or(query.Is(domain.DEFINITE_EXISTENCE), isProbable),
	query.Eq(domain.PSEUDONEG, false),
	notNegated,
	query.Eq(domain.INDICATION, false),
)

var historicalFinding = query.And(isHistorical, notNegated)

// ClinicalStateClassifier reduces the evidence of one report to its four labels.
// Labels are computed in order: disease, quality, uncertainty, historical.
type ClinicalStateClassifier struct {
	logger *logrus.Logger
}

// NewClinicalStateClassifier creates a new classifier
func NewClinicalStateClassifier(logger *logrus.Logger) *ClinicalStateClassifier {
	return &ClinicalStateClassifier{logger: logger}
}

// Classify computes the classification result of one report.
func (c *ClinicalStateClassifier) Classify(reportID int64, ev Evidence) *domain.ClassificationResult {
	disease := c.Disease(ev.Disease)
	quality := c.Quality(ev.Quality, ev.Quality2)
	uncertainty := c.Uncertainty(ev.Disease, disease, quality)
	historical := c.Historical(ev.Disease, disease)

	return &domain.ClassificationResult{
		ReportID:    reportID,
		Disease:     disease,
		Uncertainty: uncertainty,
		Historical:  historical,
		Quality:     quality,
	}
}

// Disease is positive on an unmodified mention, on an affirmed finding with no
// negation, pseudo-negation or indication, or on a non-negated historical mention.
func (c *ClinicalStateClassifier) Disease(d *query.Model) domain.DiseaseState {
	positiveEvidence := d.Exists(isUnmodified) || d.Exists(affirmedFinding)
	historicalPositive := d.Exists(historicalFinding)

	if positiveEvidence || historicalPositive {
		return domain.DISEASE_POS
	}
	return domain.DISEASE_NEG
}

// Quality is not diagnostic when an exam feature carries a quality feature or
// an artifact is mentioned at all.
func (c *ClinicalStateClassifier) Quality(q, q2 *query.Model) domain.QualityState {
	if q.Exists(isQualityIssue) || q2.Exists(isUnmodified) {
		return domain.NOT_DIAGNOSTIC
	}
	return domain.DIAGNOSTIC
}

// Uncertainty depends on the disease and quality labels. A report that never
// mentions PE, or only mentions it as an indication, is uncertain.
func (c *ClinicalStateClassifier) Uncertainty(d *query.Model, disease domain.DiseaseState, quality domain.QualityState) domain.UncertaintyState {
	noDiseaseMentionAtAll := !d.Exists(query.True())
	indicationOnly := d.Exists(isIndication) &&
		!d.Exists(isProbableNeg) &&
		!d.Exists(isDefiniteNeg) &&
		!d.Exists(isProbable)
	fallbackUncertain := noDiseaseMentionAtAll || indicationOnly

	directUncertain := d.Exists(query.Or(isProbableNeg, isProbable)) ||
		d.Exists(query.And(isProbable, isDefiniteNeg))
	qualityDrivenUncertain := quality == domain.NOT_DIAGNOSTIC && disease == domain.DISEASE_NEG

	c.logger.WithFields(logrus.Fields{
		"direct":          directUncertain,
		"quality_driven":  qualityDrivenUncertain,
		"no_mention":      noDiseaseMentionAtAll,
		"indication_only": indicationOnly,
	}).Debug("Uncertainty conditions")

	if directUncertain || qualityDrivenUncertain || fallbackUncertain {
		return domain.UNCERTAIN
	}
	return domain.NOT_UNCERTAIN
}

// Historical is NA for negative reports, otherwise Old when any mention is historical.
func (c *ClinicalStateClassifier) Historical(d *query.Model, disease domain.DiseaseState) domain.HistoricalState {
	if disease == domain.DISEASE_NEG {
		return domain.HISTORICAL_NA
	}
	if d.Exists(isHistorical) {
		return domain.HISTORICAL_OLD
	}
	return domain.HISTORICAL_NEW
}
