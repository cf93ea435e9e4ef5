package steps

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/skintwin-backend/internal/domain/twin"
)

// AdjustmentEntry maps one scenario change to its effect: a one-time shift
// applied from day 0 and a sustained change in slope (points per day).
type AdjustmentEntry struct {
	Kind          twin.ChangeKind            `yaml:"kind" json:"kind"`
	Key           string                     `yaml:"key" json:"key"`
	Description   string                     `yaml:"description,omitempty" json:"description,omitempty"`
	Shift         map[twin.Dimension]float64 `yaml:"shift,omitempty" json:"shift,omitempty"`
	SlopeModifier map[twin.Dimension]float64 `yaml:"slope_per_day,omitempty" json:"slope_per_day,omitempty"`
}

// AdjustmentTable is versioned, externally supplied configuration.
type AdjustmentTable struct {
	Version string            `yaml:"version" json:"version"`
	Entries []AdjustmentEntry `yaml:"entries" json:"entries"`

	index map[string]int
}

// EmptyAdjustmentTable knows no changes; every requested change is reported unknown.
func EmptyAdjustmentTable() *AdjustmentTable {
	return &AdjustmentTable{Version: "none"}
}

func changeKey(kind twin.ChangeKind, key string) string {
	return strings.ToLower(strings.TrimSpace(string(kind))) + "/" + strings.ToLower(strings.TrimSpace(key))
}

func (t *AdjustmentTable) Validate() error {
	if t == nil {
		return errors.New("adjustment table is nil")
	}
	if strings.TrimSpace(t.Version) == "" {
		return errors.New("adjustment table: missing version")
	}
	seen := map[string]bool{}
	var errs []error
	for i, e := range t.Entries {
		if e.Kind != twin.ChangeEnvironment && e.Kind != twin.ChangeRoutine {
			errs = append(errs, fmt.Errorf("entry %d: unknown kind %q", i, e.Kind))
		}
		if strings.TrimSpace(e.Key) == "" {
			errs = append(errs, fmt.Errorf("entry %d: missing key", i))
		}
		k := changeKey(e.Kind, e.Key)
		if seen[k] {
			errs = append(errs, fmt.Errorf("entry %d: duplicate %s", i, k))
		}
		seen[k] = true
		for _, m := range []map[twin.Dimension]float64{e.Shift, e.SlopeModifier} {
			for d, v := range m {
				if !d.Valid() {
					errs = append(errs, fmt.Errorf("entry %d (%s): unknown dimension %q", i, k, d))
				}
				if math.IsNaN(v) || math.IsInf(v, 0) {
					errs = append(errs, fmt.Errorf("entry %d (%s): non-finite value for %s", i, k, d))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func (t *AdjustmentTable) buildIndex() {
	t.index = make(map[string]int, len(t.Entries))
	for i, e := range t.Entries {
		t.index[changeKey(e.Kind, e.Key)] = i
	}
}

// Lookup is case-insensitive on kind and key.
func (t *AdjustmentTable) Lookup(kind twin.ChangeKind, key string) (AdjustmentEntry, bool) {
	if t == nil {
		return AdjustmentEntry{}, false
	}
	if t.index == nil {
		for _, e := range t.Entries {
			if changeKey(e.Kind, e.Key) == changeKey(kind, key) {
				return e, true
			}
		}
		return AdjustmentEntry{}, false
	}
	i, ok := t.index[changeKey(kind, key)]
	if !ok {
		return AdjustmentEntry{}, false
	}
	return t.Entries[i], true
}

func ParseAdjustmentTable(raw []byte) (*AdjustmentTable, error) {
	var t AdjustmentTable
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse adjustment table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.buildIndex()
	return &t, nil
}

// AdjustmentSource supplies the current table to the simulator.
type AdjustmentSource interface {
	Load(ctx context.Context) (*AdjustmentTable, error)
}

type StaticAdjustmentSource struct {
	Table *AdjustmentTable
}

func (s StaticAdjustmentSource) Load(context.Context) (*AdjustmentTable, error) {
	if s.Table == nil {
		return EmptyAdjustmentTable(), nil
	}
	return s.Table, nil
}

// FileAdjustmentSource reads a YAML table and re-reads it when the file's
// modification time changes. A failed reload keeps serving the last good table.
type FileAdjustmentSource struct {
	path string

	mu      sync.Mutex
	table   *AdjustmentTable
	modTime time.Time
}

func NewFileAdjustmentSource(path string) *FileAdjustmentSource {
	return &FileAdjustmentSource{path: strings.TrimSpace(path)}
}

func (s *FileAdjustmentSource) Load(ctx context.Context) (*AdjustmentTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		if s.table != nil {
			return s.table, nil
		}
		return nil, fmt.Errorf("stat adjustment table %s: %w", s.path, err)
	}
	if s.table != nil && info.ModTime().Equal(s.modTime) {
		return s.table, nil
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if s.table != nil {
			return s.table, nil
		}
		return nil, fmt.Errorf("read adjustment table %s: %w", s.path, err)
	}
	t, err := ParseAdjustmentTable(raw)
	if err != nil {
		if s.table != nil {
			return s.table, nil
		}
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	s.table = t
	s.modTime = info.ModTime()
	return t, nil
}
