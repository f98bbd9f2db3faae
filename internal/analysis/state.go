// SPDX-License-Identifier: MIT
package analysis

import "sync/atomic"

// BeatState is the smoothed rhythmic model maintained by the tempo
// estimator: smoothed tempo, regularity confidence and the derived beat
// interval.
type BeatState struct {
	BPM             float64
	Confidence      float64 // [0,1], regularity of the last accepted pass
	IntervalSeconds float64
}

// NeutralBeatState is the startup rhythm: 120 BPM with zero confidence.
func NeutralBeatState() BeatState {
	return BeatState{BPM: 120, Confidence: 0, IntervalSeconds: 0.5}
}

// ShortTerm is the per-block field group written by the capture callback.
// BeatDetected and LastBeat are paired: the flag holds while bass energy
// stays above threshold, and the rising edge that raised it publishes the
// timestamp in the same group, so readers never see one without the other.
type ShortTerm struct {
	Volume       float64
	Spectrum     []float64 // magnitude spectrum, owned by the snapshot
	BeatDetected bool
	LastBeat     float64 // seconds, timestamp of the most recent rising edge
}

// Snapshot is the immutable view handed to renderers once per frame. A nil
// snapshot means audio is disabled or unavailable and visuals should show no
// reactivity.
type Snapshot struct {
	Volume       float64
	Spectrum     []float64
	BeatDetected bool
	LastBeat     float64
	Beat         BeatState
	BeatProgress float64 // beat phase in [0,1] at snapshot time
}

// FeatureState is the single shared-mutable structure of the pipeline. Two
// writer roles touch disjoint field groups: the capture callback publishes
// the short-term group, the tempo worker publishes BeatState. Each group is
// swapped in as a whole via an atomic pointer, so readers combining the two
// never observe a torn group. Readers never block writers.
type FeatureState struct {
	short atomic.Pointer[ShortTerm]
	beat  atomic.Pointer[BeatState]
	clock *BeatClock
}

// NewFeatureState returns a state seeded with silence and the neutral
// rhythm, sharing the given beat clock for phase queries.
func NewFeatureState(clock *BeatClock) *FeatureState {
	fs := &FeatureState{clock: clock}
	fs.short.Store(&ShortTerm{})
	neutral := NeutralBeatState()
	fs.beat.Store(&neutral)
	return fs
}

// PublishShortTerm swaps in a new short-term field group. The caller hands
// over ownership of st and its spectrum slice and must not mutate them
// afterwards.
func (fs *FeatureState) PublishShortTerm(st *ShortTerm) {
	fs.short.Store(st)
}

// PublishBeat swaps in a new rhythm field group.
func (fs *FeatureState) PublishBeat(bs BeatState) {
	fs.beat.Store(&bs)
}

// Beat returns the current rhythm group.
func (fs *FeatureState) Beat() BeatState {
	return *fs.beat.Load()
}

// Snapshot combines both field groups into one immutable view, evaluating
// the beat phase at the given timestamp.
func (fs *FeatureState) Snapshot(now float64) *Snapshot {
	st := fs.short.Load()
	bs := fs.beat.Load()

	snap := &Snapshot{
		Volume:       st.Volume,
		Spectrum:     st.Spectrum,
		BeatDetected: st.BeatDetected,
		LastBeat:     st.LastBeat,
		Beat:         *bs,
	}
	if fs.clock != nil {
		snap.BeatProgress = fs.clock.Progress(now)
	}
	return snap
}
