package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	WAV (RIFF/WAVE) decoder: manual chunk parsing, following
 *		the teacher's fixed-layout binary-record style in
 *		ax25_pad.go/kiss_frame.go rather than a generic
 *		container library.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	wavFormatPCM       = 1
	wavFormatIEEEFloat = 3
)

type wavDecoder struct {
	r      io.ReadSeeker
	closer io.Closer

	sampleRateHz int
	channels     int
	bitDepth     int
	format       uint16

	dataStart     int64
	dataLen       int64
	bytesPerFrame int64
	totalSamples  int64

	nextFrame int64
}

func newWAVDecoder(r io.ReadSeeker, closer io.Closer) (*wavDecoder, error) {
	var riffHeader struct {
		ChunkID   [4]byte
		ChunkSize uint32
		Format    [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &riffHeader); err != nil {
		return nil, &DecoderError{Reason: "reading RIFF header", Err: err}
	}
	if string(riffHeader.ChunkID[:]) != "RIFF" || string(riffHeader.Format[:]) != "WAVE" {
		return nil, &DecoderError{Reason: "not a RIFF/WAVE file"}
	}

	d := &wavDecoder{r: r, closer: closer}

	var sawFmt, sawData bool
	for {
		var id [4]byte
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			if err == io.EOF {
				break
			}
			return nil, &DecoderError{Reason: "reading chunk id", Err: err}
		}
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, &DecoderError{Reason: "reading chunk size", Err: err}
		}

		switch string(id[:]) {
		case "fmt ":
			var fmtChunk struct {
				AudioFormat   uint16
				NumChannels   uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if err := binary.Read(r, binary.LittleEndian, &fmtChunk); err != nil {
				return nil, &DecoderError{Reason: "reading fmt chunk", Err: err}
			}
			d.format = fmtChunk.AudioFormat
			d.channels = int(fmtChunk.NumChannels)
			d.sampleRateHz = int(fmtChunk.SampleRate)
			d.bitDepth = int(fmtChunk.BitsPerSample)
			sawFmt = true

			// fmt chunk may carry extra bytes (WAVE_FORMAT_EXTENSIBLE); skip them.
			consumed := uint32(16)
			if size > consumed {
				if _, err := r.Seek(int64(size-consumed), io.SeekCurrent); err != nil {
					return nil, &DecoderError{Reason: "skipping fmt extension", Err: err}
				}
			}

		case "data":
			pos, err := r.Seek(0, io.SeekCurrent)
			if err != nil {
				return nil, &DecoderError{Reason: "locating data chunk", Err: err}
			}
			d.dataStart = pos
			d.dataLen = int64(size)
			sawData = true
			if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				// Some encoders round the data chunk size up past EOF; tolerate it.
				_, _ = r.Seek(0, io.SeekEnd)
			}

		default:
			if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				return nil, &DecoderError{Reason: fmt.Sprintf("skipping chunk %q", id), Err: err}
			}
		}

		// Chunks are word-aligned.
		if size%2 == 1 {
			_, _ = r.Seek(1, io.SeekCurrent)
		}
	}

	if !sawFmt || !sawData {
		return nil, &DecoderError{Reason: "missing fmt or data chunk"}
	}
	if d.format != wavFormatPCM && d.format != wavFormatIEEEFloat {
		return nil, &DecoderError{Reason: fmt.Sprintf("unsupported WAV format tag %d", d.format)}
	}
	if d.channels <= 0 {
		return nil, &DecoderError{Reason: "invalid channel count"}
	}

	d.bytesPerFrame = int64(d.channels) * int64(d.bitDepth/8)
	if d.bytesPerFrame <= 0 {
		return nil, &DecoderError{Reason: "invalid bit depth"}
	}
	d.totalSamples = d.dataLen / d.bytesPerFrame

	if _, err := r.Seek(d.dataStart, io.SeekStart); err != nil {
		return nil, &DecoderError{Reason: "seeking to data start", Err: err}
	}

	return d, nil
}

func (d *wavDecoder) ReadInto(dest []float32, nFrames int) (int, error) {
	remaining := d.totalSamples - d.nextFrame
	if remaining <= 0 {
		return 0, nil
	}
	if int64(nFrames) > remaining {
		nFrames = int(remaining)
	}

	raw := make([]byte, int64(nFrames)*d.bytesPerFrame)
	n, err := io.ReadFull(d.r, raw)
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, &DecoderError{Reason: "reading samples", Err: err}
	}

	framesRead := n / int(d.bytesPerFrame)
	d.nextFrame += int64(framesRead)

	samplesNeeded := framesRead * d.channels
	if len(dest) < samplesNeeded {
		samplesNeeded = len(dest)
	}

	bytesPerSample := d.bitDepth / 8
	for i := 0; i < samplesNeeded; i++ {
		off := i * bytesPerSample
		dest[i] = decodeWAVSample(raw[off:off+bytesPerSample], d.format, d.bitDepth)
	}

	return framesRead, nil
}

func decodeWAVSample(b []byte, format uint16, bitDepth int) float32 {
	switch {
	case format == wavFormatIEEEFloat && bitDepth == 32:
		bits := binary.LittleEndian.Uint32(b)
		return math.Float32frombits(bits)
	case bitDepth == 8:
		// WAV 8-bit PCM is unsigned.
		return (float32(b[0]) - 128) / 128
	case bitDepth == 16:
		v := int16(binary.LittleEndian.Uint16(b))
		return float32(v) / 32768
	case bitDepth == 24:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}
		return float32(v) / 8388608
	case bitDepth == 32:
		v := int32(binary.LittleEndian.Uint32(b))
		return float32(v) / 2147483648
	default:
		return 0
	}
}

func (d *wavDecoder) SeekToSample(n int64) error {
	if n < 0 {
		n = 0
	}
	if n > d.totalSamples {
		n = d.totalSamples
	}
	pos := d.dataStart + n*d.bytesPerFrame
	if _, err := d.r.Seek(pos, io.SeekStart); err != nil {
		return &DecoderError{Reason: "seeking", Err: err}
	}
	d.nextFrame = n
	return nil
}

func (d *wavDecoder) TotalSamples() int64 { return d.totalSamples }
func (d *wavDecoder) SampleRateHz() int   { return d.sampleRateHz }
func (d *wavDecoder) ChannelCount() int   { return d.channels }
func (d *wavDecoder) BitDepth() int       { return d.bitDepth }

func (d *wavDecoder) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}
