// Package lexicon holds the target and modifier phrase lists used by each
// analysis mode. Lexicons are configuration: a YAML file names reusable item
// sets and composes them per mode.
package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pe-finder/internal/domain"
)

//go:embed default.yaml
var defaultLexicon []byte

// ExclusionCategory marks phrases whose mentions are dropped before modifiers apply.
const ExclusionCategory = "EXCLUSION"

// Rule is the direction in which a modifier's scope extends.
type Rule string

const (
	FORWARD       Rule = "forward"
	BACKWARD      Rule = "backward"
	BIDIRECTIONAL Rule = "bidirectional"
	TERMINATE     Rule = "terminate"
)

// IsValid reports whether r is a known rule. The empty rule is allowed and
// behaves as bidirectional.
func (r Rule) IsValid() bool {
	switch r {
	case "", FORWARD, BACKWARD, BIDIRECTIONAL, TERMINATE:
		return true
	default:
		return false
	}
}

// Effective resolves the empty rule to bidirectional.
func (r Rule) Effective() Rule {
	if r == "" {
		return BIDIRECTIONAL
	}
	return r
}

// Item is a single lexicon entry.
type Item struct {
	Literal  string `yaml:"literal" json:"literal"`
	Category string `yaml:"category" json:"category"`
	Regex    string `yaml:"regex,omitempty" json:"regex,omitempty"`
	Rule     Rule   `yaml:"rule,omitempty" json:"rule,omitempty"`
}

// Pattern returns the regular expression source matched against lower-cased text.
// Without an explicit regex the literal matches with flexible whitespace.
func (i Item) Pattern() string {
	src := i.Regex
	if src == "" {
		words := strings.Fields(strings.ToLower(i.Literal))
		for n, w := range words {
			words[n] = regexp.QuoteMeta(w)
		}
		src = strings.Join(words, `\s+`)
	}
	return `(?i)\b(?:` + src + `)\b`
}

// IsExclusion reports whether the item belongs to the exclusion category.
func (i Item) IsExclusion() bool {
	return strings.EqualFold(i.Category, ExclusionCategory)
}

// ModeLexicon is the target and modifier lists for one analysis mode.
type ModeLexicon struct {
	Targets   []Item
	Modifiers []Item
}

// Lexicon maps each analysis mode to its own lexicon pair.
type Lexicon struct {
	modes map[domain.Mode]*ModeLexicon
}

type fileMode struct {
	Targets   []string `yaml:"targets"`
	Modifiers []string `yaml:"modifiers"`
}

type file struct {
	Sets  map[string][]Item   `yaml:"sets"`
	Modes map[string]fileMode `yaml:"modes"`
}

// Default returns the embedded PE lexicon.
func Default() (*Lexicon, error) {
	lex, err := Parse(defaultLexicon)
	if err != nil {
		return nil, fmt.Errorf("parsing default lexicon: %w", err)
	}
	return lex, nil
}

// Load reads a lexicon file. An empty path selects the embedded default.
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon %s: %w", path, err)
	}
	lex, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing lexicon %s: %w", path, err)
	}
	return lex, nil
}

// Parse decodes and validates a YAML lexicon.
func Parse(data []byte) (*Lexicon, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}

	lex := &Lexicon{modes: make(map[domain.Mode]*ModeLexicon, 3)}
	for name, fm := range f.Modes {
		mode, err := domain.ParseMode(name)
		if err != nil {
			return nil, err
		}
		targets, err := f.resolve(fm.Targets)
		if err != nil {
			return nil, fmt.Errorf("%s targets: %w", mode, err)
		}
		modifiers, err := f.resolve(fm.Modifiers)
		if err != nil {
			return nil, fmt.Errorf("%s modifiers: %w", mode, err)
		}
		lex.modes[mode] = &ModeLexicon{Targets: targets, Modifiers: modifiers}
	}

	if err := lex.Validate(); err != nil {
		return nil, err
	}
	return lex, nil
}

func (f *file) resolve(setNames []string) ([]Item, error) {
	var items []Item
	for _, name := range setNames {
		set, ok := f.Sets[name]
		if !ok {
			return nil, fmt.Errorf("unknown item set %q", name)
		}
		items = append(items, set...)
	}
	return items, nil
}

// Validate checks that every mode is configured, that quality2 carries no
// modifiers and that every item is complete and compiles.
func (l *Lexicon) Validate() error {
	for _, mode := range domain.Modes() {
		ml, ok := l.modes[mode]
		if !ok {
			return fmt.Errorf("lexicon has no %s mode", mode)
		}
		if len(ml.Targets) == 0 {
			return fmt.Errorf("%s mode has no targets", mode)
		}
		if mode == domain.QUALITY2 && len(ml.Modifiers) > 0 {
			return fmt.Errorf("quality2 mode must not define modifiers")
		}
		for _, item := range append(append([]Item{}, ml.Targets...), ml.Modifiers...) {
			if err := item.validate(); err != nil {
				return fmt.Errorf("%s mode: %w", mode, err)
			}
		}
	}
	return nil
}

func (i Item) validate() error {
	if strings.TrimSpace(i.Literal) == "" {
		return fmt.Errorf("item with category %q has no literal", i.Category)
	}
	if strings.TrimSpace(i.Category) == "" {
		return fmt.Errorf("item %q has no category", i.Literal)
	}
	if !i.Rule.IsValid() {
		return fmt.Errorf("item %q has invalid rule %q", i.Literal, i.Rule)
	}
	if _, err := regexp.Compile(i.Pattern()); err != nil {
		return fmt.Errorf("item %q: %w", i.Literal, err)
	}
	return nil
}

// For returns the lexicon pair of a mode.
func (l *Lexicon) For(mode domain.Mode) (*ModeLexicon, error) {
	ml, ok := l.modes[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMode, mode)
	}
	return ml, nil
}
