package daqcore

import "time"

// Chapter is a named offset within an asset, parsed from container
// metadata and used for navigation.
type Chapter struct {
	TimestampS  float64 `json:"timestamp_s"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	StartSample int64   `json:"start_sample,omitempty"`
}

// AudioAsset is immutable once produced by the metadata extractor
// collaborator. duration_s ≈ total_frames / sample_rate_hz within one
// frame; chapter timestamps are strictly non-decreasing and fall within
// [0, duration_s].
type AudioAsset struct {
	Path         string    `json:"path"`
	SampleRateHz int       `json:"sample_rate_hz"`
	BitDepth     int       `json:"bit_depth"`
	ChannelCount int       `json:"channel_count"`
	DurationS    float64   `json:"duration_s"`
	SizeBytes    int64     `json:"size_bytes"`
	Artist       string    `json:"artist,omitempty"`
	Thumbnail    []byte    `json:"thumbnail,omitempty"`
	Chapters     []Chapter `json:"chapters,omitempty"`
	TotalSamples int64     `json:"total_samples"`
}

// DeviceDescriptor is produced by the Device Registry at startup and on
// explicit refresh.
type DeviceDescriptor struct {
	Name            string  `json:"name"`
	ProductType     string  `json:"product_type"`
	ProductCategory string  `json:"product_category"`
	MaxAORateHz     float64 `json:"max_ao_rate_hz"`
	AOLineCount     int     `json:"ao_line_count"`
	DOLineCount     int     `json:"do_line_count"`
}

// ChannelSpec names are unique within their own list and belong to the
// selected device. AI is reserved for future capture; the core only
// validates it.
type ChannelSpec struct {
	AOLines []string `json:"ao_channels"`
	DOLines []string `json:"do_channels,omitempty"`
	AILines []string `json:"ai_channels,omitempty"`
}

// LoopMode is a reply-echoed setting; only LoopNone has engine behavior.
// Stream end always moves the job to Completed whatever the loop mode
// (see daemon.go's watchPumpEvents).
type LoopMode string

const (
	LoopNone LoopMode = "none"
	LoopAll  LoopMode = "all"
	LoopOne  LoopMode = "one"
)

// TransportState is the canonical playback state, mutated only via the
// documented transitions in transport.go.
type TransportState string

const (
	StateIdle      TransportState = "Idle"
	StateLoaded    TransportState = "Loaded"
	StatePlaying   TransportState = "Playing"
	StatePaused    TransportState = "Paused"
	StateSeeking   TransportState = "Seeking"
	StateCompleted TransportState = "Completed"
)

// PlaybackJobSnapshot is a consistent, lock-free-to-read copy of the
// mutable playback job fields, suitable for JSON replies and progress
// broadcast without holding the job's mutex during I/O.
type PlaybackJobSnapshot struct {
	Asset           AudioAsset       `json:"asset"`
	Device          DeviceDescriptor `json:"device"`
	Channels        ChannelSpec      `json:"channels"`
	SampleRateHz    int              `json:"sample_rate_hz"`
	SamplesPerFrame int              `json:"samples_per_frame"`
	VolumePct       int              `json:"volume_pct"`
	Muted           bool             `json:"muted"`
	FlipLRStereo    bool             `json:"flip_lr_stereo"`
	LoopMode        LoopMode         `json:"loop_mode"`
	PositionSamples int64            `json:"position_samples"`
	TotalSamples    int64            `json:"total_samples"`
	State           TransportState   `json:"state"`
	LastError       string           `json:"last_error,omitempty"`
	UnderflowEvents int64            `json:"underflow_events"`
}

// ControlSession is created per accepted socket connection; it is
// ephemeral and closed on protocol error or explicit handler action.
type ControlSession struct {
	ID         string
	LastMsgID  string
	Connected  time.Time
	Subscribed bool // true while this is the session receiving progress events
}
