// Package markup is a ConText-style annotation engine. A Document marks target
// and modifier phrases one sentence at a time, links modifiers to the targets
// inside their scope and accumulates the linked targets into a per-report graph.
package markup

import (
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/pe-finder/internal/domain"
	"github.com/pe-finder/internal/lexicon"
	"github.com/pe-finder/internal/query"
)

var (
	ErrNoSentence = errors.New("no sentence in progress")
	ErrNoPatterns = errors.New("pattern cache not configured")
)

// Kind distinguishes target marks from modifier marks.
type Kind int

const (
	TARGET Kind = iota
	MODIFIER
)

func (k Kind) String() string {
	if k == TARGET {
		return "target"
	}
	return "modifier"
}

// Mark is one lexicon match within the current sentence. Start and End are
// byte offsets into the sentence.
type Mark struct {
	Item  lexicon.Item
	Kind  Kind
	Start int
	End   int
	Text  string
}

func (m Mark) contains(o Mark) bool {
	return m.Start <= o.Start && o.End <= m.End
}

func (m Mark) overlaps(o Mark) bool {
	return m.Start < o.End && o.Start < m.End
}

func (m Mark) length() int {
	return m.End - m.Start
}

// Mention is a committed target together with the modifiers linked to it.
type Mention struct {
	Sentence  int
	Target    Mark
	Modifiers []Mark
}

// Engine creates documents that share one compiled-pattern cache.
type Engine struct {
	patterns *lexicon.PatternCache
}

func NewEngine(patterns *lexicon.PatternCache) *Engine {
	return &Engine{patterns: patterns}
}

// NewDocument returns an empty document builder. A document belongs to a single
// pass over a single report.
func (e *Engine) NewDocument() *Document {
	return &Document{patterns: e.patterns}
}

// Document is the mutable markup state of one report for one pass.
type Document struct {
	patterns *lexicon.PatternCache

	sentences int
	sentence  string
	active    bool
	marks     []Mark
	links     map[int][]Mark

	graph []Mention
}

// Reset discards all sentence and graph state.
func (d *Document) Reset() {
	d.sentences = 0
	d.sentence = ""
	d.active = false
	d.marks = nil
	d.links = nil
	d.graph = nil
}

// Sentences splits the report text.
func (d *Document) Sentences(text string) iter.Seq[string] {
	return Sentences(text)
}

// Begin starts markup of a new sentence.
func (d *Document) Begin(sentence string) {
	d.sentence = sentence
	d.active = true
	d.marks = nil
	d.links = nil
}

// MarkModifiers records every occurrence of the modifier items.
func (d *Document) MarkModifiers(items []lexicon.Item) error {
	return d.mark(items, MODIFIER)
}

// MarkTargets records every occurrence of the target items.
func (d *Document) MarkTargets(items []lexicon.Item) error {
	return d.mark(items, TARGET)
}

func (d *Document) mark(items []lexicon.Item, kind Kind) error {
	if !d.active {
		return ErrNoSentence
	}
	if d.patterns == nil {
		return ErrNoPatterns
	}
	for _, item := range items {
		re, err := d.patterns.Compile(item)
		if err != nil {
			return fmt.Errorf("marking %ss: %w", kind, err)
		}
		for _, loc := range re.FindAllStringIndex(d.sentence, -1) {
			d.marks = append(d.marks, Mark{
				Item:  item,
				Kind:  kind,
				Start: loc[0],
				End:   loc[1],
				Text:  d.sentence[loc[0]:loc[1]],
			})
		}
	}
	return nil
}

// PruneMarks removes marks lying inside a longer mark and collapses duplicates
// of the same kind, category and span.
func (d *Document) PruneMarks() {
	sort.SliceStable(d.marks, func(i, j int) bool {
		if d.marks[i].Start != d.marks[j].Start {
			return d.marks[i].Start < d.marks[j].Start
		}
		return d.marks[i].length() > d.marks[j].length()
	})

	kept := d.marks[:0:0]
	for i, m := range d.marks {
		if d.shadowed(i) || duplicate(kept, m) {
			continue
		}
		kept = append(kept, m)
	}
	d.marks = kept
}

func (d *Document) shadowed(i int) bool {
	m := d.marks[i]
	for j, o := range d.marks {
		if j != i && o.length() > m.length() && o.contains(m) {
			return true
		}
	}
	return false
}

func duplicate(kept []Mark, m Mark) bool {
	for _, k := range kept {
		if k.Kind == m.Kind && k.Start == m.Start && k.End == m.End &&
			strings.EqualFold(k.Item.Category, m.Item.Category) {
			return true
		}
	}
	return false
}

// DropMarks removes marks of the given category and any target overlapping one.
func (d *Document) DropMarks(category string) {
	var dropped []Mark
	for _, m := range d.marks {
		if strings.EqualFold(m.Item.Category, category) {
			dropped = append(dropped, m)
		}
	}
	if len(dropped) == 0 {
		return
	}

	kept := d.marks[:0:0]
	for _, m := range d.marks {
		if strings.EqualFold(m.Item.Category, category) {
			continue
		}
		if m.Kind == TARGET && overlapsAny(m, dropped) {
			continue
		}
		kept = append(kept, m)
	}
	d.marks = kept
}

func overlapsAny(m Mark, others []Mark) bool {
	for _, o := range others {
		if m.overlaps(o) {
			return true
		}
	}
	return false
}

// ApplyModifiers links each modifier to the targets inside its scope. Scopes
// run to the sentence boundary or the nearest terminate mark.
func (d *Document) ApplyModifiers() {
	d.links = make(map[int][]Mark)
	for _, mod := range d.marks {
		if mod.Kind != MODIFIER {
			continue
		}
		rule := mod.Item.Rule.Effective()
		if rule == lexicon.TERMINATE {
			continue
		}
		lo, hi := d.scope(mod, rule)
		for ti, target := range d.marks {
			if target.Kind != TARGET {
				continue
			}
			if target.Start >= lo && target.End <= hi {
				d.links[ti] = append(d.links[ti], mod)
			}
		}
	}
}

func (d *Document) scope(mod Mark, rule lexicon.Rule) (int, int) {
	lo, hi := mod.Start, mod.End
	if rule == lexicon.FORWARD || rule == lexicon.BIDIRECTIONAL {
		hi = len(d.sentence)
		for _, t := range d.terminators() {
			if t.Start >= mod.End && t.Start < hi {
				hi = t.Start
			}
		}
	}
	if rule == lexicon.BACKWARD || rule == lexicon.BIDIRECTIONAL {
		lo = 0
		for _, t := range d.terminators() {
			if t.End <= mod.Start && t.End > lo {
				lo = t.End
			}
		}
	}
	return lo, hi
}

func (d *Document) terminators() []Mark {
	var out []Mark
	for _, m := range d.marks {
		if m.Kind == MODIFIER && m.Item.Rule.Effective() == lexicon.TERMINATE {
			out = append(out, m)
		}
	}
	return out
}

// Commit appends the sentence's targets and their links to the document graph.
func (d *Document) Commit() error {
	if !d.active {
		return ErrNoSentence
	}
	for i, m := range d.marks {
		if m.Kind != TARGET {
			continue
		}
		d.graph = append(d.graph, Mention{
			Sentence:  d.sentences,
			Target:    m,
			Modifiers: d.links[i],
		})
	}
	d.sentences++
	d.active = false
	d.marks = nil
	d.links = nil
	return nil
}

// Graph returns the committed mentions.
func (d *Document) Graph() []Mention {
	return d.graph
}

// Mentions materializes the graph as one record per mention, keeping only the
// requested flags. Unmodified is derived from every link.
func (d *Document) Mentions(flags []domain.Flag) []query.Record {
	records := make([]query.Record, 0, len(d.graph))
	for _, m := range d.graph {
		linked := make(map[domain.Flag]bool, len(m.Modifiers)+1)
		for _, mod := range m.Modifiers {
			linked[domain.FlagForCategory(mod.Item.Category)] = true
		}
		linked[domain.UNMODIFIED] = len(m.Modifiers) == 0

		rec := make(query.Record, len(flags))
		for _, f := range flags {
			rec[f] = linked[f]
		}
		records = append(records, rec)
	}
	return records
}
