package analysis

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/verdant/internal/classify"
	"github.com/sells-group/verdant/internal/geo"
	"github.com/sells-group/verdant/internal/model"
	"github.com/sells-group/verdant/internal/progress"
	"github.com/sells-group/verdant/internal/spectral"
)

func equatorBoundary(t *testing.T) *geo.Boundary {
	t.Helper()
	b, err := geo.FromBox(model.BoundingBox{West: 0, South: 0, East: 0.02, North: 0.02})
	require.NoError(t, err)
	return b
}

func newYearAnalyzer(p spectral.Provider, s spectral.Strictness) *YearAnalyzer {
	return &YearAnalyzer{
		Grid:       geo.NewGridBuilder(0, 0, 0),
		Provider:   p,
		Classifier: classify.New(nil),
		Strictness: s,
		Budget:     100,
	}
}

// recorder collects reported events.
type recorder struct {
	mu     sync.Mutex
	events []recorded
}

type recorded struct {
	typ     progress.EventType
	payload any
}

func (r *recorder) reporter() Reporter {
	return func(typ progress.EventType, payload any) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, recorded{typ, payload})
	}
}

func (r *recorder) count(typ progress.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.typ == typ {
			n++
		}
	}
	return n
}

func (r *recorder) types() []progress.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]progress.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.typ
	}
	return out
}
