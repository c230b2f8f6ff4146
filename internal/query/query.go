// Package query evaluates boolean predicates over the mention records produced
// by one analysis pass.
package query

import (
	"github.com/pe-finder/internal/domain"
)

// Record is the flag set of one target mention. Flags that were not requested
// for the pass are absent and read false.
type Record map[domain.Flag]bool

// Get returns the value of a flag, false when absent.
func (r Record) Get(f domain.Flag) bool {
	return r[f]
}

// Predicate is a boolean expression over a single record.
type Predicate func(Record) bool

// Eq matches records whose flag equals v.
func Eq(f domain.Flag, v bool) Predicate {
	return func(r Record) bool { return r.Get(f) == v }
}

// Is matches records carrying flag f.
func Is(f domain.Flag) Predicate {
	return Eq(f, true)
}

// Not negates p.
func Not(p Predicate) Predicate {
	return func(r Record) bool { return !p(r) }
}

// And matches when every predicate matches. And() matches everything.
func And(ps ...Predicate) Predicate {
	return func(r Record) bool {
		for _, p := range ps {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// Or matches when any predicate matches. Or() matches nothing.
func Or(ps ...Predicate) Predicate {
	return func(r Record) bool {
		for _, p := range ps {
			if p(r) {
				return true
			}
		}
		return false
	}
}

// True matches every record.
func True() Predicate {
	return func(Record) bool { return true }
}

// Model is the queryable result of one analysis pass over one report.
type Model struct {
	records []Record
}

// NewModel wraps the records of a pass. The slice is not copied.
func NewModel(records []Record) *Model {
	return &Model{records: records}
}

// Exists reports whether any record satisfies p. It is false for an empty model,
// whatever p is.
func (m *Model) Exists(p Predicate) bool {
	if m == nil {
		return false
	}
	for _, r := range m.records {
		if p(r) {
			return true
		}
	}
	return false
}

// Count returns how many records satisfy p.
func (m *Model) Count(p Predicate) int {
	if m == nil {
		return 0
	}
	n := 0
	for _, r := range m.records {
		if p(r) {
			n++
		}
	}
	return n
}

// Len returns the number of mention records.
func (m *Model) Len() int {
	if m == nil {
		return 0
	}
	return len(m.records)
}
