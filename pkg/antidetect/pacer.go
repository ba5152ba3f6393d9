package antidetect

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// PauseRange bounds one random pause.
type PauseRange struct {
	Min time.Duration
	Max time.Duration
}

func (p PauseRange) sample(rng *rand.Rand) time.Duration {
	if p.Max <= p.Min {
		return p.Min
	}
	return p.Min + time.Duration(rng.Int63n(int64(p.Max-p.Min)))
}

// pacing holds the pre- and post-action pause bounds for one action kind.
type pacing struct {
	pre  PauseRange
	post PauseRange
}

// defaultPacing approximates human rhythm: long pauses around page loads,
// short ones around keystrokes.
var defaultPacing = map[string]pacing{
	"navigate": {
		pre:  PauseRange{Min: 1 * time.Second, Max: 3 * time.Second},
		post: PauseRange{Min: 2 * time.Second, Max: 5 * time.Second},
	},
	"click": {
		pre:  PauseRange{Min: 400 * time.Millisecond, Max: 1200 * time.Millisecond},
		post: PauseRange{Min: 500 * time.Millisecond, Max: 1500 * time.Millisecond},
	},
	"input_text": {
		pre:  PauseRange{Min: 200 * time.Millisecond, Max: 800 * time.Millisecond},
		post: PauseRange{Min: 200 * time.Millisecond, Max: 600 * time.Millisecond},
	},
	"login": {
		pre:  PauseRange{Min: 1 * time.Second, Max: 2 * time.Second},
		post: PauseRange{Min: 1 * time.Second, Max: 3 * time.Second},
	},
}

var fallbackPacing = pacing{
	pre:  PauseRange{Min: 100 * time.Millisecond, Max: 500 * time.Millisecond},
	post: PauseRange{Min: 100 * time.Millisecond, Max: 400 * time.Millisecond},
}

// Pacer injects bounded random pauses around actions so the session never
// exhibits a fixed-interval fingerprint.
type Pacer struct {
	mu      sync.Mutex
	rng     *rand.Rand
	enabled bool
	pacing  map[string]pacing
	scale   float64
}

func NewPacer(enabled bool) *Pacer {
	return &Pacer{
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		enabled: enabled,
		pacing:  defaultPacing,
		scale:   1.0,
	}
}

// WithScale shrinks or stretches every pause by a factor. Mostly useful for
// keeping tests fast.
func (p *Pacer) WithScale(scale float64) *Pacer {
	p.scale = scale
	return p
}

func (p *Pacer) pauseFor(action string, post bool) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	pc, ok := p.pacing[action]
	if !ok {
		pc = fallbackPacing
	}
	r := pc.pre
	if post {
		r = pc.post
	}
	return time.Duration(float64(r.sample(p.rng)) * p.scale)
}

// PreAction sleeps a bounded random interval before an action runs.
func (p *Pacer) PreAction(ctx context.Context, action string) error {
	if !p.enabled {
		return nil
	}
	return pause(ctx, p.pauseFor(action, false))
}

// PostAction sleeps a bounded random interval after an action completes.
func (p *Pacer) PostAction(ctx context.Context, action string) error {
	if !p.enabled {
		return nil
	}
	return pause(ctx, p.pauseFor(action, true))
}

// pause is a cancellable sleep.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
