package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	Decoder: produces interleaved float32 source frames in
 *		[-1, 1] from an audio file at its native rate.
 *
 * Description:	Replaces dynamic dispatch over codecs with a tagged
 *		union (spec.md §9 Design Note): a Codec enum selects a
 *		concrete decoder, each satisfying the same narrow
 *		interface. Add a codec by adding a case to OpenDecoder
 *		and a new Codec constant, not by adding a layer of
 *		indirection.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Codec names a supported container/codec combination.
type Codec string

const (
	CodecWAV  Codec = "wav"
	CodecFLAC Codec = "flac"
)

// Decoder is a lazy, restartable, finite sequence over one asset.
//
// read_into never blocks longer than necessary to produce one codec
// frame; a short read (n < nFrames) is not an error, and the caller
// (the Frame Pump) pads the remainder with zeros. seek_to_sample
// positions the next read to begin at sample index n, plus or minus
// one codec frame; residual drift is the caller's responsibility to
// resolve by discarding or zero-padding up to one frame.
type Decoder interface {
	ReadInto(dest []float32, nFrames int) (framesRead int, err error)
	SeekToSample(n int64) error
	TotalSamples() int64
	SampleRateHz() int
	ChannelCount() int
	BitDepth() int
	Close() error
}

// DetectCodec guesses the codec from a file extension. The control
// protocol's load_audio handler uses this before opening the decoder;
// a future container-sniffing pass could replace it without changing
// the Decoder interface.
func DetectCodec(path string) (Codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return CodecWAV, nil
	case ".flac":
		return CodecFLAC, nil
	default:
		return "", &DecoderError{Reason: fmt.Sprintf("unsupported extension %q", filepath.Ext(path))}
	}
}

// OpenDecoder opens r as codec and returns a ready Decoder positioned
// at sample 0. closer, if non-nil, is closed by the Decoder's Close;
// pass nil when the caller keeps ownership of the underlying file.
func OpenDecoder(codec Codec, r io.ReadSeeker, closer io.Closer) (Decoder, error) {
	switch codec {
	case CodecWAV:
		return newWAVDecoder(r, closer)
	case CodecFLAC:
		return newFLACDecoder(r, closer)
	default:
		return nil, &DecoderError{Reason: fmt.Sprintf("unknown codec %q", codec)}
	}
}
