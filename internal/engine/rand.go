package engine

import (
	"math/rand"
	"sync"
	"time"
)

// Randomizer supplies every probabilistic decision and randomized delay the
// executor makes. Tests inject deterministic implementations to force a
// transient failure, a partial fill, or a confirmation failure without
// relying on statistical repetition.
type Randomizer interface {
	// TransientFailure reports whether this attempt fails transiently.
	TransientFailure() bool
	// PartialFill reports whether an unforced fill is partial.
	PartialFill() bool
	// ConfirmationFailure reports whether the confirmation step fails.
	ConfirmationFailure() bool

	// FailurePause is the short pause after a transient failure, before
	// the linear backoff delay.
	FailurePause() time.Duration
	// PartialFollowUpDelay is the delay before a partial fill's follow-up
	// execution attempt.
	PartialFollowUpDelay() time.Duration
	// ConfirmationDelay is the delay before the confirmation step after a
	// full fill.
	ConfirmationDelay() time.Duration
}

// RandomizerConfig sets the probability thresholds and delay windows for the
// production randomizer.
type RandomizerConfig struct {
	TransientFailureProb    float64
	PartialFillProb         float64
	ConfirmationFailureProb float64

	FailurePauseMin      time.Duration
	FailurePauseMax      time.Duration
	PartialFollowUpMin   time.Duration
	PartialFollowUpMax   time.Duration
	ConfirmationDelayMin time.Duration
	ConfirmationDelayMax time.Duration
}

// randomizer is the production Randomizer backed by a seedable math/rand
// source. The mutex makes it safe to share across worker goroutines.
type randomizer struct {
	mu  sync.Mutex
	rnd *rand.Rand
	cfg RandomizerConfig
}

// NewRandomizer creates a seedable Randomizer with the given thresholds.
func NewRandomizer(seed int64, cfg RandomizerConfig) Randomizer {
	return &randomizer{
		rnd: rand.New(rand.NewSource(seed)),
		cfg: cfg,
	}
}

func (r *randomizer) TransientFailure() bool {
	return r.chance(r.cfg.TransientFailureProb)
}

func (r *randomizer) PartialFill() bool {
	return r.chance(r.cfg.PartialFillProb)
}

func (r *randomizer) ConfirmationFailure() bool {
	return r.chance(r.cfg.ConfirmationFailureProb)
}

func (r *randomizer) FailurePause() time.Duration {
	return r.between(r.cfg.FailurePauseMin, r.cfg.FailurePauseMax)
}

func (r *randomizer) PartialFollowUpDelay() time.Duration {
	return r.between(r.cfg.PartialFollowUpMin, r.cfg.PartialFollowUpMax)
}

func (r *randomizer) ConfirmationDelay() time.Duration {
	return r.between(r.cfg.ConfirmationDelayMin, r.cfg.ConfirmationDelayMax)
}

func (r *randomizer) chance(p float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64() < p
}

func (r *randomizer) between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return min + time.Duration(r.rnd.Int63n(int64(max-min)+1))
}
