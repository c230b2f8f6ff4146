package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pe-finder/internal/domain"
)

func TestDefault(t *testing.T) {
	lex, err := Default()
	require.NoError(t, err)

	disease, err := lex.For(domain.DISEASE)
	require.NoError(t, err)
	assert.NotEmpty(t, disease.Targets)
	assert.NotEmpty(t, disease.Modifiers)

	quality, err := lex.For(domain.QUALITY)
	require.NoError(t, err)
	assert.True(t, containsCategory(quality.Targets, ExclusionCategory))
	assert.True(t, containsCategory(quality.Modifiers, ExclusionCategory))
	assert.True(t, containsCategory(quality.Modifiers, "QUALITY_FEATURE"))

	quality2, err := lex.For(domain.QUALITY2)
	require.NoError(t, err)
	assert.NotEmpty(t, quality2.Targets)
	assert.Empty(t, quality2.Modifiers)
}

func TestDefault_DiseaseModifierCategories(t *testing.T) {
	lex, err := Default()
	require.NoError(t, err)
	disease, err := lex.For(domain.DISEASE)
	require.NoError(t, err)

	for _, category := range []string{
		"PSEUDONEG",
		"DEFINITE_NEGATED_EXISTENCE",
		"PROBABLE_NEGATED_EXISTENCE",
		"PROBABLE_EXISTENCE",
		"DEFINITE_EXISTENCE",
		"INDICATION",
		"HISTORICAL",
	} {
		assert.True(t, containsCategory(disease.Modifiers, category), category)
	}
}

func TestItem_Pattern(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		match   []string
		noMatch []string
	}{
		{
			name:    "literal with flexible whitespace",
			item:    Item{Literal: "no evidence of", Category: "DEFINITE_NEGATED_EXISTENCE"},
			match:   []string{"no evidence of pe", "there is no  evidence of clot"},
			noMatch: []string{"no evidenceof pe"},
		},
		{
			name:    "word boundaries",
			item:    Item{Literal: "likely", Category: "PROBABLE_EXISTENCE"},
			match:   []string{"most likely pe"},
			noMatch: []string{"unlikely pe"},
		},
		{
			name:  "regex overrides literal",
			item:  Item{Literal: "embolism", Category: "PULMONARY_EMBOLISM", Regex: `embol(?:ism|i|us)`},
			match: []string{"small emboli", "saddle embolus"},
		},
		{
			name:  "metacharacters in literal are quoted",
			item:  Item{Literal: "r/o", Category: "INDICATION"},
			match: []string{"r/o pe"},
		},
	}

	cache, err := NewPatternCache(8)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := cache.Compile(tt.item)
			require.NoError(t, err)
			for _, s := range tt.match {
				assert.True(t, re.MatchString(s), s)
			}
			for _, s := range tt.noMatch {
				assert.False(t, re.MatchString(s), s)
			}
		})
	}
}

func TestPatternCache_Reuse(t *testing.T) {
	cache, err := NewPatternCache(0)
	require.NoError(t, err)

	item := Item{Literal: "filling defect", Category: "PULMONARY_EMBOLISM"}
	first, err := cache.Compile(item)
	require.NoError(t, err)
	second, err := cache.Compile(item)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, cache.Len())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown set",
			yaml: `
modes:
  disease: {targets: [missing]}
`,
			want: "unknown item set",
		},
		{
			name: "missing mode",
			yaml: `
sets:
  t: [{literal: pe, category: PE}]
modes:
  disease: {targets: [t]}
  quality: {targets: [t]}
`,
			want: "no quality2 mode",
		},
		{
			name: "quality2 modifiers",
			yaml: `
sets:
  t: [{literal: pe, category: PE}]
  m: [{literal: no, category: DEFINITE_NEGATED_EXISTENCE, rule: forward}]
modes:
  disease: {targets: [t]}
  quality: {targets: [t]}
  quality2: {targets: [t], modifiers: [m]}
`,
			want: "must not define modifiers",
		},
		{
			name: "bad rule",
			yaml: `
sets:
  t: [{literal: pe, category: PE}]
  m: [{literal: no, category: DEFINITE_NEGATED_EXISTENCE, rule: sideways}]
modes:
  disease: {targets: [t], modifiers: [m]}
  quality: {targets: [t]}
  quality2: {targets: [t]}
`,
			want: "invalid rule",
		},
		{
			name: "bad regex",
			yaml: `
sets:
  t: [{literal: pe, category: PE, regex: 'emb(ol'}]
modes:
  disease: {targets: [t]}
  quality: {targets: [t]}
  quality2: {targets: [t]}
`,
			want: "item \"pe\"",
		},
		{
			name: "unknown mode",
			yaml: `
modes:
  radiology: {targets: []}
`,
			want: "unknown analysis mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path uses default", func(t *testing.T) {
		lex, err := Load("")
		require.NoError(t, err)
		_, err = lex.For(domain.QUALITY2)
		assert.NoError(t, err)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lexicon.yaml")
		content := `
sets:
  t: [{literal: clot, category: PULMONARY_EMBOLISM}]
modes:
  disease: {targets: [t]}
  quality: {targets: [t]}
  quality2: {targets: [t]}
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		lex, err := Load(path)
		require.NoError(t, err)
		disease, err := lex.For(domain.DISEASE)
		require.NoError(t, err)
		require.Len(t, disease.Targets, 1)
		assert.Equal(t, "clot", disease.Targets[0].Literal)
		assert.Equal(t, BIDIRECTIONAL, disease.Targets[0].Rule.Effective())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func containsCategory(items []Item, category string) bool {
	for _, item := range items {
		if item.Category == category {
			return true
		}
	}
	return false
}
