package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	FLAC decoder, wrapping github.com/mewkiz/flac. Frame-level
 *		decoding is delegated entirely to that library; this file
 *		only adapts its per-frame int32 subframe samples into the
 *		Decoder interface's interleaved float32 contract.
 *
 *---------------------------------------------------------------*/

import (
	"io"

	"github.com/mewkiz/flac"
)

type flacDecoder struct {
	stream *flac.Stream
	closer io.Closer

	channels     int
	bitDepth     int
	sampleRateHz int
	totalSamples int64

	nextFrame int64

	// pending holds leftover interleaved samples from the most recently
	// decoded FLAC frame that didn't fit in the caller's buffer.
	pending    []float32
	pendingPos int
}

func newFLACDecoder(r io.ReadSeeker, closer io.Closer) (*flacDecoder, error) {
	stream, err := flac.NewSeek(r)
	if err != nil {
		return nil, &DecoderError{Reason: "opening FLAC stream", Err: err}
	}

	return &flacDecoder{
		stream:       stream,
		closer:       closer,
		channels:     int(stream.Info.NChannels),
		bitDepth:     int(stream.Info.BitsPerSample),
		sampleRateHz: int(stream.Info.SampleRate),
		totalSamples: int64(stream.Info.NSamples),
	}, nil
}

func (d *flacDecoder) normalize(v int32) float32 {
	scale := float32(int64(1) << (d.bitDepth - 1))
	return float32(v) / scale
}

// fillFromFrame decodes one FLAC frame and appends its interleaved,
// normalized samples to d.pending.
func (d *flacDecoder) fillFromFrame() error {
	f, err := d.stream.ParseNext()
	if err != nil {
		return err
	}

	n := int(f.BlockSize)
	interleaved := make([]float32, n*d.channels)
	for ch := 0; ch < d.channels && ch < len(f.Subframes); ch++ {
		sf := f.Subframes[ch]
		for i := 0; i < n && i < len(sf.Samples); i++ {
			interleaved[i*d.channels+ch] = d.normalize(sf.Samples[i])
		}
	}

	d.pending = interleaved
	d.pendingPos = 0
	return nil
}

func (d *flacDecoder) ReadInto(dest []float32, nFrames int) (int, error) {
	framesWanted := nFrames
	framesWritten := 0
	destPos := 0

	for framesWritten < framesWanted {
		if d.pendingPos >= len(d.pending) {
			if err := d.fillFromFrame(); err != nil {
				if err == io.EOF {
					break
				}
				return framesWritten, &DecoderError{Reason: "decoding FLAC frame", Err: err}
			}
		}

		available := (len(d.pending) - d.pendingPos) / d.channels
		need := framesWanted - framesWritten
		take := available
		if take > need {
			take = need
		}

		samplesToCopy := take * d.channels
		copy(dest[destPos:destPos+samplesToCopy], d.pending[d.pendingPos:d.pendingPos+samplesToCopy])

		d.pendingPos += samplesToCopy
		destPos += samplesToCopy
		framesWritten += take
		d.nextFrame += int64(take)
	}

	return framesWritten, nil
}

func (d *flacDecoder) SeekToSample(n int64) error {
	if n < 0 {
		n = 0
	}
	if n > d.totalSamples {
		n = d.totalSamples
	}
	pos, err := d.stream.Seek(uint64(n))
	if err != nil {
		return &DecoderError{Reason: "seeking FLAC stream", Err: err}
	}
	d.nextFrame = int64(pos)
	d.pending = nil
	d.pendingPos = 0
	return nil
}

func (d *flacDecoder) TotalSamples() int64 { return d.totalSamples }
func (d *flacDecoder) SampleRateHz() int   { return d.sampleRateHz }
func (d *flacDecoder) ChannelCount() int   { return d.channels }
func (d *flacDecoder) BitDepth() int       { return d.bitDepth }

func (d *flacDecoder) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}
