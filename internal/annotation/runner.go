// Package annotation runs the three analysis passes over a report and turns each
// pass's markup into a queryable mention model.
package annotation

import (
	"fmt"
	"iter"

	"github.com/sirupsen/logrus"

	"github.com/pe-finder/internal/domain"
	"github.com/pe-finder/internal/lexicon"
	"github.com/pe-finder/internal/query"
)

// Document is the per-report markup builder driven by a pass. A document is
// owned by one pass over one report and is never shared.
type Document interface {
	Reset()
	Sentences(text string) iter.Seq[string]
	Begin(sentence string)
	MarkModifiers(items []lexicon.Item) error
	MarkTargets(items []lexicon.Item) error
	PruneMarks()
	DropMarks(category string)
	ApplyModifiers()
	Commit() error
	Mentions(flags []domain.Flag) []query.Record
}

// DocumentFactory returns a fresh Document.
type DocumentFactory func() Document

// Pass is one independently configured analysis pass.
type Pass struct {
	Mode      domain.Mode
	Targets   []lexicon.Item
	Modifiers []lexicon.Item
}

// RelevantFlags returns the minimal flag set the classifier reads from a mode.
func RelevantFlags(mode domain.Mode) []domain.Flag {
	switch mode {
	case domain.DISEASE:
		return []domain.Flag{
			domain.UNMODIFIED,
			domain.INDICATION,
			domain.PROBABLE_EXISTENCE,
			domain.DEFINITE_EXISTENCE,
			domain.HISTORICAL,
			domain.PSEUDONEG,
			domain.DEFINITE_NEGATED_EXISTENCE,
			domain.PROBABLE_NEGATED_EXISTENCE,
		}
	case domain.QUALITY:
		return []domain.Flag{domain.QUALITY_FEATURE}
	case domain.QUALITY2:
		return []domain.Flag{domain.UNMODIFIED}
	default:
		return nil
	}
}

// PassRunner holds the three passes, indexed by mode.
type PassRunner struct {
	passes      [3]Pass
	newDocument DocumentFactory
	logger      *logrus.Logger
}

// NewPassRunner builds the disease, quality and quality2 passes from a lexicon.
func NewPassRunner(lex *lexicon.Lexicon, newDocument DocumentFactory, logger *logrus.Logger) (*PassRunner, error) {
	if lex == nil {
		return nil, fmt.Errorf("lexicon is required")
	}
	if newDocument == nil {
		return nil, fmt.Errorf("document factory is required")
	}

	r := &PassRunner{newDocument: newDocument, logger: logger}
	for _, mode := range domain.Modes() {
		ml, err := lex.For(mode)
		if err != nil {
			return nil, fmt.Errorf("configuring %s pass: %w", mode, err)
		}
		r.passes[mode] = Pass{Mode: mode, Targets: ml.Targets, Modifiers: ml.Modifiers}
	}
	return r, nil
}

// Pass returns the configuration of a mode's pass.
func (r *PassRunner) Pass(mode domain.Mode) (Pass, error) {
	if !mode.IsValid() {
		return Pass{}, fmt.Errorf("%w: %s", domain.ErrUnknownMode, mode)
	}
	return r.passes[mode], nil
}

// Run annotates text with one pass and returns its mention model restricted to
// flags. Any engine failure aborts the pass; no partial model is returned.
func (r *PassRunner) Run(text string, mode domain.Mode, flags []domain.Flag) (*query.Model, error) {
	pass, err := r.Pass(mode)
	if err != nil {
		return nil, err
	}

	doc := r.newDocument()
	doc.Reset()

	n := 0
	for sentence := range doc.Sentences(text) {
		if err := r.annotateSentence(doc, pass, sentence); err != nil {
			return nil, fmt.Errorf("%s pass, sentence %d: %w", mode, n, err)
		}
		n++
	}

	records := doc.Mentions(flags)
	r.logger.WithFields(logrus.Fields{
		"mode":      mode.String(),
		"sentences": n,
		"mentions":  len(records),
	}).Debug("Analysis pass complete")

	return query.NewModel(records), nil
}

func (r *PassRunner) annotateSentence(doc Document, pass Pass, sentence string) error {
	doc.Begin(sentence)
	if len(pass.Modifiers) > 0 {
		if err := doc.MarkModifiers(pass.Modifiers); err != nil {
			return err
		}
	}
	if err := doc.MarkTargets(pass.Targets); err != nil {
		return err
	}
	doc.PruneMarks()
	doc.DropMarks(lexicon.ExclusionCategory)
	doc.ApplyModifiers()
	return doc.Commit()
}
