package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	Expand a decoded source frame (S channels) to the AO
 *		line count (A channels) per the documented fan-out
 *		policy, then apply volume/mute.
 *
 * Description:	A pure function with no allocation on the per-callback
 *		path; callers supply both source and destination
 *		slices. Generalizes the teacher's logical-channel to
 *		physical-channel bookkeeping in multi_modem.go.
 *
 *---------------------------------------------------------------*/

// ChannelMapper holds the fixed parameters of the fan-out policy for a
// job's lifetime: source channel count and AO line count. Whether
// stereo left/right roles are swapped is passed to Map per call.
type ChannelMapper struct {
	SourceChannels int
	AOLineCount    int
}

// NewChannelMapper validates S and A are positive; the fan-out policy
// itself never fails once constructed.
func NewChannelMapper(sourceChannels, aoLineCount int) (*ChannelMapper, error) {
	if sourceChannels <= 0 {
		return nil, &ValidationError{Reason: "source channel count must be positive"}
	}
	if aoLineCount <= 0 {
		return nil, &ValidationError{Reason: "AO line count must be positive"}
	}
	return &ChannelMapper{SourceChannels: sourceChannels, AOLineCount: aoLineCount}, nil
}

// FlipAllowed reports whether flip_lr_stereo has any effect for this
// mapper's source channel count. Per spec, flipping is disallowed
// (ignored with a warning) for S != 2.
func (m *ChannelMapper) FlipAllowed() bool {
	return m.SourceChannels == 2
}

// Map expands one interleaved source frame (length SourceChannels) into
// dst (length AOLineCount, overwritten in place), applying the fan-out
// policy, stereo flip, and linear volume gain. dst must already be
// sized to AOLineCount; no allocation occurs here.
func (m *ChannelMapper) Map(src []float32, dst []float32, flip bool, gain float32) {
	switch m.SourceChannels {
	case 1:
		v := src[0] * gain
		for i := range dst {
			dst[i] = v
		}
	case 2:
		left, right := src[0], src[1]
		if flip {
			left, right = right, left
		}
		for i := range dst {
			if i%2 == 0 {
				dst[i] = left * gain
			} else {
				dst[i] = right * gain
			}
		}
	default:
		for i := range dst {
			dst[i] = src[i%m.SourceChannels] * gain
		}
	}
}

// Gain computes the linear volume multiplier from the wire's 0..100
// integer percentage, applying mute as a hard zero.
func Gain(volumePct int, muted bool) float32 {
	if muted {
		return 0
	}
	return float32(volumePct) / 100
}
