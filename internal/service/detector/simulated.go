package detector

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	analysis "github.com/zhouzirui/moodflip/internal/analysis/emotion"
	"github.com/zhouzirui/moodflip/internal/model/emotion"
)

const (
	defaultSimulatedInterval = 3 * time.Second
	minSimulatedConfidence   = 0.6
	maxSimulatedConfidence   = 1.0
)

type weightedLabel struct {
	label  analysis.Label
	weight int
}

// Skewed toward happy and neutral so the demo looks plausible rather than noisy.
var simulatedWeights = []weightedLabel{
	{analysis.Happy, 30},
	{analysis.Neutral, 30},
	{analysis.Sad, 10},
	{analysis.Surprised, 10},
	{analysis.Angry, 8},
	{analysis.Fearful, 6},
	{analysis.Disgusted, 6},
}

// Simulator is the terminal fallback backend. It never fails to initialize and ignores frames.
type Simulator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	interval time.Duration
	total    int
}

// NewSimulator returns a simulator seeded with seed.
func NewSimulator(seed uint64, interval time.Duration) *Simulator {
	if interval <= 0 {
		interval = defaultSimulatedInterval
	}
	total := 0
	for _, w := range simulatedWeights {
		total += w.weight
	}
	return &Simulator{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		interval: interval,
		total:    total,
	}
}

func (s *Simulator) Kind() Kind {
	return Simulated
}

func (s *Simulator) Interval() time.Duration {
	return s.interval
}

func (s *Simulator) Initialize(context.Context) error {
	return nil
}

func (s *Simulator) Sample(context.Context, emotion.Frame) (emotion.RawClassification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pick := s.rng.IntN(s.total)
	label := simulatedWeights[len(simulatedWeights)-1].label
	for _, w := range simulatedWeights {
		if pick < w.weight {
			label = w.label
			break
		}
		pick -= w.weight
	}

	confidence := minSimulatedConfidence + s.rng.Float64()*(maxSimulatedConfidence-minSimulatedConfidence)
	return emotion.RawClassification{string(label): confidence}, nil
}
