// Package stability implements StabilityDetector, a signal stabilizer
// over a family of (threshold, duration) pairs. No other package in the
// broker uses it; the tree planner's pruning loop is bounded by its own
// attempt count.
package stability

import "time"

// ThresholdDuration pairs a relative threshold with how long the observed
// signal must stay within it before that threshold counts as satisfied.
// A detector is configured with a family of these pairs, typically a
// geometric sequence of thresholds against an arithmetic sequence of
// durations: tighter thresholds are given longer to settle.
type ThresholdDuration struct {
	Threshold float64
	Duration  time.Duration
}

// Detector tracks upper and lower envelopes of an observed scalar signal
// and reports stability once the signal has stayed within every
// configured (threshold, duration) pair for that pair's duration. The
// envelopes only widen to take in each sample; they do not decay back
// toward the signal, so a pair whose threshold has been exceeded stays
// unsatisfied until Reset or a strict outlier — a sample landing outside
// the loosest envelope — re-centres both envelopes and resets every
// pair's timer.
type Detector struct {
	pairs []ThresholdDuration

	upper, lower float64
	initialized  bool

	satisfiedSince []time.Time // per-pair: when the pair's envelope was last (re)entered, zero if not currently satisfied
	lastObserved   time.Time
}

// New builds a Detector from a family of threshold/duration pairs. Pairs
// need not be pre-sorted; Observe treats them independently.
func New(pairs []ThresholdDuration) *Detector {
	cp := make([]ThresholdDuration, len(pairs))
	copy(cp, pairs)
	return &Detector{
		pairs:          cp,
		satisfiedSince: make([]time.Time, len(cp)),
	}
}

// envelopeWidth returns the loosest threshold configured, the bound a
// strict outlier must fall outside of to trigger a full reset.
func (d *Detector) envelopeWidth() float64 {
	widest := 0.0
	for _, p := range d.pairs {
		if p.Threshold > widest {
			widest = p.Threshold
		}
	}
	return widest
}

// Observe records a new sample at time now and reports whether the
// detector now considers the signal stable — every configured pair has
// held within its threshold for at least its duration.
func (d *Detector) Observe(now time.Time, x float64) bool {
	if !d.initialized {
		d.upper, d.lower = x, x
		d.initialized = true
		d.lastObserved = now
		for i := range d.satisfiedSince {
			d.satisfiedSince[i] = now
		}
		return d.stable(now)
	}

	widest := d.envelopeWidth()
	if widest > 0 && (x > d.upper*(1+widest) || x < d.lower*(1-widest)) {
		// Strict outlier: reset every pair's clock and re-center the
		// envelopes on the new sample.
		d.upper, d.lower = x, x
		for i := range d.satisfiedSince {
			d.satisfiedSince[i] = now
		}
		d.lastObserved = now
		return d.stable(now)
	}

	if x > d.upper {
		d.upper = x
	}
	if x < d.lower {
		d.lower = x
	}

	spread := relativeSpread(d.lower, d.upper)
	for i, p := range d.pairs {
		if spread <= p.Threshold {
			if d.satisfiedSince[i].IsZero() {
				d.satisfiedSince[i] = now
			}
		} else {
			d.satisfiedSince[i] = time.Time{}
		}
	}

	d.lastObserved = now
	return d.stable(now)
}

func relativeSpread(lower, upper float64) float64 {
	if upper == 0 {
		if lower == 0 {
			return 0
		}
		return 1
	}
	return (upper - lower) / upper
}

// stable reports whether every pair has been continuously satisfied for
// at least its configured duration.
func (d *Detector) stable(now time.Time) bool {
	for i, p := range d.pairs {
		since := d.satisfiedSince[i]
		if since.IsZero() {
			return false
		}
		if now.Sub(since) < p.Duration {
			return false
		}
	}
	return len(d.pairs) > 0
}

// Reset clears all accumulated state, as if the detector had never
// observed a sample.
func (d *Detector) Reset() {
	d.initialized = false
	d.upper, d.lower = 0, 0
	for i := range d.satisfiedSince {
		d.satisfiedSince[i] = time.Time{}
	}
}
