package scoring

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"image_ratings/internal/models"
)

// StubScorer stands in for a real inference call: it waits for delay and
// draws every dimension uniformly from its own sub-range of [0,1].
type StubScorer struct {
	delay time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

type scoreRange struct{ min, max float64 }

var (
	watermarkRange   = scoreRange{0.5, 1.0}
	poseRange        = scoreRange{0.7, 1.0}
	clarityRange     = scoreRange{0.6, 1.0}
	colorRange       = scoreRange{0.5, 1.0}
	compositionRange = scoreRange{0.6, 1.0}
	backgroundRange  = scoreRange{0.5, 1.0}
	distractionRange = scoreRange{0.5, 1.0}
)

// NewStubScorer uses rnd when given, otherwise a randomly seeded source.
func NewStubScorer(delay time.Duration, rnd *rand.Rand) *StubScorer {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &StubScorer{delay: delay, rnd: rnd}
}

func (s *StubScorer) Score(ctx context.Context, _ []byte) (models.Scores, error) {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return models.Scores{}, ctx.Err()
		case <-t.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Scores{
		WatermarkSeverity:  s.draw(watermarkRange),
		PoseQuality:        s.draw(poseRange),
		ClarityScore:       s.draw(clarityRange),
		ColorHarmony:       s.draw(colorRange),
		CompositionBalance: s.draw(compositionRange),
		BackgroundQuality:  s.draw(backgroundRange),
		DistractionLevel:   s.draw(distractionRange),
	}, nil
}

// draw rounds to two decimals.
func (s *StubScorer) draw(r scoreRange) float64 {
	v := r.min + s.rnd.Float64()*(r.max-r.min)
	return math.Round(v*100) / 100
}
