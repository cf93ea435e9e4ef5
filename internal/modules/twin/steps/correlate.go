package steps

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/skintwin-backend/internal/domain/twin"
	"github.com/yungbote/skintwin-backend/internal/platform/dbctx"
)

const (
	DefaultEnvironmentWindow = 2 * time.Hour
	DefaultRoutineWindow     = 4 * time.Hour
)

// ContextFinder is the windowed read over the externally-owned context streams.
type ContextFinder interface {
	FindInWindow(dbc dbctx.Context, userID uuid.UUID, kind twin.ContextKind, center time.Time, window time.Duration) ([]twin.ContextCandidate, error)
}

// Correlator links a point in time to the nearest environment or routine record.
type Correlator struct {
	Finder            ContextFinder
	EnvironmentWindow time.Duration
	RoutineWindow     time.Duration
}

func (c Correlator) Window(kind twin.ContextKind) time.Duration {
	switch kind {
	case twin.ContextEnvironment:
		if c.EnvironmentWindow > 0 {
			return c.EnvironmentWindow
		}
		return DefaultEnvironmentWindow
	case twin.ContextRoutine:
		if c.RoutineWindow > 0 {
			return c.RoutineWindow
		}
		return DefaultRoutineWindow
	}
	return 0
}

// FindNearest returns the id of the closest record within at±window, or nil
// when there is none. An empty window is not an error.
func (c Correlator) FindNearest(dbc dbctx.Context, userID uuid.UUID, kind twin.ContextKind, at time.Time, window time.Duration) (*uuid.UUID, error) {
	if c.Finder == nil || userID == uuid.Nil {
		return nil, nil
	}
	cands, err := c.Finder.FindInWindow(dbc, userID, kind, at, window)
	if err != nil {
		return nil, err
	}
	best, ok := twin.NearestCandidate(withinWindow(cands, at, window), at)
	if !ok {
		return nil, nil
	}
	id := best.ID
	return &id, nil
}

// Nearest is FindNearest with the configured window for kind.
func (c Correlator) Nearest(dbc dbctx.Context, userID uuid.UUID, kind twin.ContextKind, at time.Time) (*uuid.UUID, error) {
	return c.FindNearest(dbc, userID, kind, at, c.Window(kind))
}

func withinWindow(cands []twin.ContextCandidate, at time.Time, window time.Duration) []twin.ContextCandidate {
	out := cands[:0:0]
	for _, cand := range cands {
		if cand.Distance(at) <= window {
			out = append(out, cand)
		}
	}
	return out
}
