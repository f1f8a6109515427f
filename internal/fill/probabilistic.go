package fill

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/model"
)

// Probabilistic models the empirically lower fill rate of passive orders.
// Orders at or through the market still fill immediately; an order resting
// away from the market fills with probability 1-exp(-rate*Δt), where rate
// is fills-per-minute for the currently observed spread and Δt the time
// since the previous tick. Rates come from an externally calibrated
// spread-bucket table with a base rate fallback.
type Probabilistic struct {
	baseRatePerMin float64
	buckets        []spreadBucket // ascending by spread
	rng            *rand.Rand
}

type spreadBucket struct {
	spreadCents int
	ratePerMin  float64
}

// NewProbabilistic builds the model from a base fills-per-minute rate, an
// optional spread->rate table, and a seeded RNG so replays are repeatable.
func NewProbabilistic(baseRatePerMin float64, spreadRates map[int]float64, rng *rand.Rand) *Probabilistic {
	buckets := make([]spreadBucket, 0, len(spreadRates))
	for spread, rate := range spreadRates {
		buckets = append(buckets, spreadBucket{spreadCents: spread, ratePerMin: rate})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].spreadCents < buckets[j].spreadCents })

	return &Probabilistic{
		baseRatePerMin: baseRatePerMin,
		buckets:        buckets,
		rng:            rng,
	}
}

func (*Probabilistic) Name() string { return "probabilistic" }

func (m *Probabilistic) Fills(tick model.Tick, resting []model.Order, elapsed time.Duration) []Execution {
	var execs []Execution
	for _, o := range resting {
		if o.Kind != model.KindLimit {
			continue
		}
		if _, ok := crosses(tick, o); ok {
			execs = append(execs, Execution{Order: o, PriceCents: o.PriceCents})
			continue
		}
		if elapsed <= 0 {
			continue
		}
		p := m.fillProbability(tick.Spread(), elapsed)
		if m.rng.Float64() < p {
			execs = append(execs, Execution{Order: o, PriceCents: o.PriceCents})
		}
	}
	return execs
}

// fillProbability converts a per-minute fill rate into a per-interval
// probability. The exponential form makes the model insensitive to tick
// granularity: one sixty-second gap behaves like sixty one-second gaps.
func (m *Probabilistic) fillProbability(spreadCents int, elapsed time.Duration) float64 {
	rate := m.ratePerMin(spreadCents)
	if rate <= 0 {
		return 0
	}
	return 1 - math.Exp(-rate*elapsed.Minutes())
}

// ratePerMin picks the calibrated rate for the widest bucket not exceeding
// the spread, falling back to the base rate below the narrowest bucket.
func (m *Probabilistic) ratePerMin(spreadCents int) float64 {
	rate := m.baseRatePerMin
	for _, b := range m.buckets {
		if b.spreadCents > spreadCents {
			break
		}
		rate = b.ratePerMin
	}
	return rate
}
