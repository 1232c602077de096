package detector

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/elliotchance/pie/v2"

	"github.com/zhouzirui/moodflip/internal/model/emotion"
)

// Adapter gives every backend the same shape: raw classifications come in, normalized
// samples go out.
type Adapter struct {
	backend Backend
	table   LabelTable
	now     func() time.Time
}

// NewAdapter wraps backend with its label table.
func NewAdapter(backend Backend, table LabelTable) *Adapter {
	if table == nil {
		table = DefaultTable(backend.Kind(), nil)
	}
	return &Adapter{backend: backend, table: table, now: time.Now}
}

func (a *Adapter) Kind() Kind {
	return a.backend.Kind()
}

func (a *Adapter) Interval() time.Duration {
	return a.backend.Interval()
}

func (a *Adapter) Initialize(ctx context.Context) error {
	return a.backend.Initialize(ctx)
}

// Sample classifies frame and normalizes the dominant label.
func (a *Adapter) Sample(ctx context.Context, frame emotion.Frame) (emotion.Sample, error) {
	raw, err := a.backend.Sample(ctx, frame)
	if err != nil {
		return emotion.Sample{}, err
	}

	sample, err := Normalize(raw, a.table)
	if err != nil {
		return emotion.Sample{}, fmt.Errorf("%s: %w", a.Kind(), err)
	}
	sample.Backend = string(a.Kind())
	sample.Timestamp = a.now().UTC()
	return sample, nil
}

// Normalize picks the highest-confidence raw label (ties resolve by name) and maps it
// through table. Confidence is clamped to [0,1].
func Normalize(raw emotion.RawClassification, table LabelTable) (emotion.Sample, error) {
	keys := pie.Keys(raw)
	slices.Sort(keys)

	best := ""
	bestScore := math.Inf(-1)
	for _, key := range keys {
		score := raw[key]
		if math.IsNaN(score) {
			continue
		}
		if score > bestScore {
			best = key
			bestScore = score
		}
	}
	if best == "" {
		return emotion.Sample{}, ErrNoFace
	}

	label := table.Lookup(best)
	return emotion.Sample{
		Label:      label,
		Canonical:  label.Canonical(),
		Confidence: clamp01(bestScore),
	}, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
