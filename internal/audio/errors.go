// SPDX-License-Identifier: MIT
package audio

import "errors"

// Fault taxonomy for the capture path. Faults are contained where they occur
// and converted to a logged event plus a safe default; none of them stop the
// render loop, and the stream is never auto-restarted.
var (
	// ErrDeviceUnavailable means no usable input device could be opened.
	// The system stays usable without audio; consumers must treat a nil
	// feature snapshot as "no reactivity".
	ErrDeviceUnavailable = errors.New("audio: input device unavailable")

	// ErrStreamFault marks a hardware stream error. The affected block's
	// features are skipped.
	ErrStreamFault = errors.New("audio: stream fault")

	// ErrAnalysisFault marks a failed feature extraction pass. Short-term
	// features for the block default to zero volume; BeatState is left
	// unchanged.
	ErrAnalysisFault = errors.New("audio: analysis fault")
)
