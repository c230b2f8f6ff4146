package cli

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pe-finder/internal/domain"
	"github.com/pe-finder/internal/service"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func seedInput(t *testing.T, path string, reports ...domain.Report) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE pesubject (id INTEGER, impression TEXT)")
	require.NoError(t, err)
	for _, r := range reports {
		_, err = db.Exec("INSERT INTO pesubject (id, impression) VALUES (?, ?)", r.ID, r.Impression)
		require.NoError(t, err)
	}
}

func TestRunCmd(t *testing.T) {
	dir := isolate(t)
	input := filepath.Join(dir, "reports.db")
	output := filepath.Join(dir, "results.db")
	seedInput(t, input,
		domain.Report{ID: 1, Impression: "Acute pulmonary embolism."},
		domain.Report{ID: 2, Impression: "No evidence of pulmonary embolism."},
		domain.Report{ID: 3, Impression: "Lungs are clear."},
	)

	t.Run("JSON_Summary", func(t *testing.T) {
		out, err := execute(t, "run", "--db", input, "--odb", output, "--json")
		require.NoError(t, err)

		var summary service.RunSummary
		require.NoError(t, json.Unmarshal([]byte(out), &summary))
		assert.Equal(t, 3, summary.Total)
		assert.Equal(t, 3, summary.Processed)
		assert.Equal(t, 1, summary.Disease[domain.DISEASE_POS])
		assert.Equal(t, 2, summary.Disease[domain.DISEASE_NEG])
	})

	t.Run("Positional_Stores_And_Table", func(t *testing.T) {
		out, err := execute(t, "run", input, output)
		require.NoError(t, err)
		assert.Contains(t, out, "Processed 3 of 3 cases")
		assert.Contains(t, out, "LABEL")
		assert.Contains(t, out, "uncertainty")

		db, err := sql.Open("sqlite", output)
		require.NoError(t, err)
		defer db.Close()

		var disease, historical string
		require.NoError(t, db.QueryRow("SELECT disease, historical FROM results WHERE id = 1").Scan(&disease, &historical))
		assert.Equal(t, "Pos", disease)
		assert.Equal(t, "New", historical)
	})

	t.Run("Same_Store_Rejected", func(t *testing.T) {
		_, err := execute(t, "run", "--db", input, "--odb", input)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrSameStore)
		assert.Contains(t, err.Error(), "output database must be distinct from input database")
	})

	t.Run("Missing_Input", func(t *testing.T) {
		_, err := execute(t, "run", "--db", filepath.Join(dir, "none.db"), "--odb", output)
		assert.ErrorIs(t, err, domain.ErrInputNotFound)
	})

	t.Run("Missing_Output_Flag", func(t *testing.T) {
		_, err := execute(t, "run", "--db", input)
		var ve *domain.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "output.dsn", ve.Field)
	})
}

func TestConfigShowCmd(t *testing.T) {
	isolate(t)
	t.Setenv("PEFINDER_INPUT_TABLE", "impressions")

	out, err := execute(t, "config", "show")
	require.NoError(t, err)

	var cfg domain.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "impressions", cfg.Input.Table)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, 512, cfg.Lexicon.PatternCacheSize)
}

func TestLexiconShowCmd(t *testing.T) {
	isolate(t)

	out, err := execute(t, "lexicon", "show", "--mode", "quality2")
	require.NoError(t, err)
	assert.Contains(t, out, "quality2:")
	assert.Contains(t, out, "0 modifiers")
	assert.Contains(t, out, "motion artifact")
	assert.NotContains(t, out, "disease:")

	_, err = execute(t, "lexicon", "show", "--mode", "radiology")
	assert.ErrorIs(t, err, domain.ErrUnknownMode)
}

func TestVersionCmd(t *testing.T) {
	isolate(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pefinder dev\n", out)
}
