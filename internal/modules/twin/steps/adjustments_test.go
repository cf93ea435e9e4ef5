package steps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/skintwin-backend/internal/domain/twin"
)

const tableV1 = `
version: "2026.1"
entries:
  - kind: routine
    key: add_sunscreen
    description: daily SPF
    shift:
      pigmentation_index: -2
    slope_per_day:
      pigmentation_index: -0.05
  - kind: environment
    key: humid_climate
    shift:
      hydration_index: 4
`

func TestParseAdjustmentTable(t *testing.T) {
	table, err := ParseAdjustmentTable([]byte(tableV1))
	require.NoError(t, err)
	assert.Equal(t, "2026.1", table.Version)

	e, ok := table.Lookup(twin.ChangeRoutine, "ADD_SUNSCREEN")
	require.True(t, ok)
	assert.Equal(t, -0.05, e.SlopeModifier[twin.PigmentationIndex])

	_, ok = table.Lookup(twin.ChangeEnvironment, "add_sunscreen")
	assert.False(t, ok)
}

func TestParseAdjustmentTableRejectsBadTables(t *testing.T) {
	cases := map[string]string{
		"no version":    "entries: []",
		"bad kind":      "version: x\nentries:\n  - kind: diet\n    key: sugar\n",
		"missing key":   "version: x\nentries:\n  - kind: routine\n",
		"bad dimension": "version: x\nentries:\n  - kind: routine\n    key: a\n    shift:\n      glow: 3\n",
		"duplicate":     "version: x\nentries:\n  - kind: routine\n    key: a\n  - kind: routine\n    key: A\n",
		"not yaml":      "version: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAdjustmentTable([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestFileAdjustmentSourceReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adjustments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tableV1), 0o600))

	src := NewFileAdjustmentSource(path)
	ctx := context.Background()
	t1, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026.1", t1.Version)

	again, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Same(t, t1, again)

	require.NoError(t, os.WriteFile(path, []byte("version: \"2026.2\"\nentries: []\n"), 0o600))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))
	t2, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026.2", t2.Version)

	// a broken edit keeps the last good table
	require.NoError(t, os.WriteFile(path, []byte("version: ["), 0o600))
	later := future.Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	t3, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026.2", t3.Version)
}

func TestFileAdjustmentSourceMissingFile(t *testing.T) {
	_, err := NewFileAdjustmentSource(filepath.Join(t.TempDir(), "missing.yaml")).Load(context.Background())
	assert.Error(t, err)

	table, err := StaticAdjustmentSource{}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "none", table.Version)
}
