package replay

// #region imports
import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarryhq/groundctl/internal/logging"
	"github.com/quarryhq/groundctl/internal/planner"
)

// #endregion

func TestCanonicalFixturesPass(t *testing.T) {
	runner := NewRunner(logging.Nop())

	results, failed := runner.RunAll(Canonical())
	for _, res := range results {
		assert.True(t, res.Pass, "fixture %q: %v", res.Name, res.Diffs)
	}
	assert.Zero(t, failed)
}

func TestFixtureRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.json")
	require.NoError(t, Save(path, Canonical()))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, len(Canonical()))

	runner := NewRunner(logging.Nop())
	_, failed := runner.RunAll(loaded)
	assert.Zero(t, failed)
}

func TestRunReportsDiffs(t *testing.T) {
	runner := NewRunner(logging.Nop())

	f := Fixture{
		Name:      "expected answer but no evidence",
		QueryText: "what is the onboarding checklist",
		Mode:      "owner",
		Expected:  Expected{Class: "factual", Action: "answer"},
	}
	res := runner.Run(f)
	assert.False(t, res.Pass)
	require.NotEmpty(t, res.Diffs)
	assert.Contains(t, res.Diffs[0], "action")
	assert.Equal(t, planner.ActionClarify, res.Decision.Action)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
