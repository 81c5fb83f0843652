package daqcore

/*------------------------------------------------------------------
 *
 * Purpose:	Control Protocol task dispatch (spec.md §4.6): one
 *		function per task name, matching appserver.go's
 *		command-by-string-match style generalized to the JSON
 *		task table this spec defines.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"encoding/json"
	"os"
	"time"
)

// dispatch answers one ControlRequest. The returned bool is true only
// for terminate, signalling handleConn to close the connection.
func (s *ControlServer) dispatch(ctx context.Context, session *ControlSession, req ControlRequest) (ControlReply, bool) {
	switch req.Task {
	case "healthcheck":
		return successReply(req.ID, map[string]interface{}{"ok": true, "pid": s.daemon.Pid()}, true), false

	case "pid":
		return successReply(req.ID, map[string]interface{}{"pid": s.daemon.Pid()}, true), false

	case "status":
		return s.handleStatus(req), false

	case "terminate":
		s.cancelPendingPlay(session.ID, nil)
		_ = s.daemon.Terminate()
		return successReply(req.ID, nil, true), true

	case "load_audio":
		s.cancelPendingPlay(session.ID, nil)
		return s.handleLoadAudio(req), false

	case "play":
		return s.handlePlay(ctx, session, req)

	case "pause":
		s.cancelPendingPlay(session.ID, nil)
		return s.handlePause(req), false

	case "resume":
		return s.handleResume(ctx, session, req)

	case "volume":
		return s.handleVolume(req), false

	case "seek":
		return s.handleSeek(req), false

	case "get_position":
		return s.handleGetPosition(req), false

	case "flip_lr_stereo":
		return s.handleFlipLRStereo(req), false

	default:
		return errorReply(req.ID, ErrUnknownTask.Reason), false
	}
}

func (s *ControlServer) handleStatus(req ControlRequest) ControlReply {
	snap, ok := s.daemon.Snapshot()
	if !ok {
		return successReply(req.ID, map[string]interface{}{"state": StateIdle}, true)
	}
	return successReply(req.ID, snap, true)
}

type loadAudioData struct {
	FilePath        string   `json:"file_path"`
	DeviceName      string   `json:"device_name"`
	AOChannels      []string `json:"ao_channels"`
	AIChannels      []string `json:"ai_channels,omitempty"`
	DOChannels      []string `json:"do_channels,omitempty"`
	Volume          *int     `json:"volume,omitempty"`
	SamplesPerFrame int      `json:"samples_per_frame,omitempty"`
	FlipLRStereo    bool     `json:"flip_lr_stereo,omitempty"`
}

func (s *ControlServer) handleLoadAudio(req ControlRequest) ControlReply {
	var data loadAudioData
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &data); err != nil {
			return errorReply(req.ID, "malformed_data")
		}
	}
	if data.FilePath == "" || data.DeviceName == "" || len(data.AOChannels) == 0 {
		return errorReply(req.ID, "validation_error")
	}

	var asset AudioAsset
	var err error
	if s.daemon.library != nil {
		asset, err = s.daemon.library.Metadata(data.FilePath)
	} else {
		asset, err = ProbeAsset(data.FilePath)
	}
	if err != nil {
		return errorReplyFromErr(req.ID, err)
	}

	devices, err := s.daemon.Registry.ListDevices()
	if err != nil {
		return errorReplyFromErr(req.ID, err)
	}
	var device DeviceDescriptor
	found := false
	for _, d := range devices {
		if d.Name == data.DeviceName {
			device, found = d, true
			break
		}
	}
	if !found {
		return errorReply(req.ID, "unknown_device")
	}

	channels := ChannelSpec{AOLines: data.AOChannels, DOLines: data.DOChannels, AILines: data.AIChannels}

	snap, err := s.daemon.LoadAudio(asset, device, channels, data.SamplesPerFrame)
	if err != nil {
		return errorReplyFromErr(req.ID, err)
	}

	if data.Volume != nil {
		if job, ok := s.daemon.currentJob(); ok {
			_ = job.SetVolume(*data.Volume)
		}
		snap, _ = s.daemon.Snapshot()
	}
	if data.FlipLRStereo {
		if job, ok := s.daemon.currentJob(); ok {
			job.SetFlipLRStereo(true)
		}
		snap, _ = s.daemon.Snapshot()
	}

	return successReply(req.ID, snap, true)
}

// ProbeAsset builds a minimal AudioAsset straight from the Decoder,
// used both when no Library Index collaborator is wired in (spec.md
// §4.8: the core trusts but does not require that collaborator) and
// by the `daqplayer metadata` CLI subcommand.
func ProbeAsset(path string) (AudioAsset, error) {
	codec, err := DetectCodec(path)
	if err != nil {
		return AudioAsset{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return AudioAsset{}, &DecoderError{Reason: "opening " + path, Err: err}
	}
	defer f.Close()

	dec, err := OpenDecoder(codec, f, nil)
	if err != nil {
		return AudioAsset{}, err
	}
	defer dec.Close()

	info, err := f.Stat()
	if err != nil {
		return AudioAsset{}, &DecoderError{Reason: "statting " + path, Err: err}
	}

	return AudioAsset{
		Path:         path,
		SampleRateHz: dec.SampleRateHz(),
		BitDepth:     dec.BitDepth(),
		ChannelCount: dec.ChannelCount(),
		TotalSamples: dec.TotalSamples(),
		DurationS:    float64(dec.TotalSamples()) / float64(dec.SampleRateHz()),
		SizeBytes:    info.Size(),
	}, nil
}

type playData struct {
	StartPosition *int64  `json:"start_position,omitempty"`
	Volume        *int    `json:"volume,omitempty"`
	Loop          *string `json:"loop,omitempty"`
}

func (s *ControlServer) handlePlay(ctx context.Context, session *ControlSession, req ControlRequest) (ControlReply, bool) {
	var data playData
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &data); err != nil {
			return errorReply(req.ID, "malformed_data"), false
		}
	}

	job, ok := s.daemon.currentJob()
	if !ok {
		return errorReply(req.ID, "no_job_loaded"), false
	}
	if data.Volume != nil {
		if err := job.SetVolume(*data.Volume); err != nil {
			return errorReplyFromErr(req.ID, err), false
		}
	}
	if data.Loop != nil {
		job.SetLoopMode(LoopMode(*data.Loop))
	}

	if _, err := s.daemon.Play(data.StartPosition); err != nil {
		return errorReplyFromErr(req.ID, err), false
	}

	playCtx, cancel := context.WithCancel(ctx)
	s.cancelPendingPlay(session.ID, cancel)
	go s.forwardProgress(playCtx, session, req.ID)

	return successReply(req.ID, nil, false), false
}

// forwardProgress streams progress_update messages (tagged with the
// play request's id) to the connection until playCtx is canceled or
// the job reports completion. Writes go through ControlServer.writeJSON
// so they interleave safely with replies the read-dispatch loop in
// handleConn writes to the same connection.
func (s *ControlServer) forwardProgress(playCtx context.Context, session *ControlSession, id string) {
	// ProgressChan may not exist yet the instant play() returns if the
	// emitter start races this goroutine's first tick; a short poll
	// covers that window without the daemon needing to signal readiness.
	var ch <-chan ProgressUpdate
	for i := 0; i < 10 && ch == nil; i++ {
		ch = s.daemon.ProgressChan()
		if ch == nil {
			select {
			case <-playCtx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}
	if ch == nil {
		return
	}

	for {
		select {
		case <-playCtx.Done():
			return
		case update, ok := <-ch:
			if !ok {
				return
			}
			if err := s.writeJSON(session.ID, progressReply(id, update)); err != nil {
				return
			}
			if update.AudioCompleted {
				return
			}
		}
	}
}

type pauseData struct {
	Stop *bool `json:"stop,omitempty"`
}

func (s *ControlServer) handlePause(req ControlRequest) ControlReply {
	var data pauseData
	if len(req.Data) > 0 {
		_ = json.Unmarshal(req.Data, &data)
	}
	snap, err := s.daemon.Pause()
	if err != nil {
		return errorReplyFromErr(req.ID, err)
	}
	return successReply(req.ID, snap, true)
}

func (s *ControlServer) handleResume(ctx context.Context, session *ControlSession, req ControlRequest) (ControlReply, bool) {
	snap, err := s.daemon.Play(nil)
	if err != nil {
		return errorReplyFromErr(req.ID, err), false
	}
	playCtx, cancel := context.WithCancel(ctx)
	s.cancelPendingPlay(session.ID, cancel)
	go s.forwardProgress(playCtx, session, req.ID)
	return successReply(req.ID, snap, false), false
}

type volumeData struct {
	Volume int `json:"volume"`
}

func (s *ControlServer) handleVolume(req ControlRequest) ControlReply {
	var data volumeData
	if err := json.Unmarshal(req.Data, &data); err != nil {
		return errorReply(req.ID, "malformed_data")
	}
	job, ok := s.daemon.currentJob()
	if !ok {
		return errorReply(req.ID, "no_job_loaded")
	}
	if err := job.SetVolume(data.Volume); err != nil {
		return errorReplyFromErr(req.ID, err)
	}
	return successReply(req.ID, map[string]int{"volume": data.Volume}, true)
}

type seekData struct {
	TimeS    *float64 `json:"time,omitempty"`
	Position *int64   `json:"position,omitempty"`
}

func (s *ControlServer) handleSeek(req ControlRequest) ControlReply {
	var data seekData
	if err := json.Unmarshal(req.Data, &data); err != nil {
		return errorReply(req.ID, "malformed_data")
	}
	job, ok := s.daemon.currentJob()
	if !ok {
		return errorReply(req.ID, "no_job_loaded")
	}

	var posSamples int64
	switch {
	case data.Position != nil:
		posSamples = *data.Position
	case data.TimeS != nil:
		posSamples = int64(*data.TimeS * float64(job.SampleRateHz))
	default:
		return errorReply(req.ID, "validation_error")
	}

	snap, err := s.daemon.Seek(posSamples)
	if err != nil {
		return errorReplyFromErr(req.ID, err)
	}
	return successReply(req.ID, snap, true)
}

func (s *ControlServer) handleGetPosition(req ControlRequest) ControlReply {
	job, ok := s.daemon.currentJob()
	if !ok {
		return errorReply(req.ID, "no_job_loaded")
	}
	pos := job.Position()
	var posS, durS float64
	if job.SampleRateHz > 0 {
		posS = float64(pos) / float64(job.SampleRateHz)
		durS = float64(job.TotalSamples) / float64(job.SampleRateHz)
	}
	return successReply(req.ID, map[string]float64{"position_s": posS, "duration_s": durS}, true)
}

type flipData struct {
	FlipLRStereo *bool `json:"flip_lr_stereo,omitempty"`
}

func (s *ControlServer) handleFlipLRStereo(req ControlRequest) ControlReply {
	var data flipData
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &data); err != nil {
			return errorReply(req.ID, "malformed_data")
		}
	}
	job, ok := s.daemon.currentJob()
	if !ok {
		return errorReply(req.ID, "no_job_loaded")
	}
	if data.FlipLRStereo != nil {
		if ok := job.SetFlipLRStereo(*data.FlipLRStereo); !ok {
			return errorReply(req.ID, "flip_not_allowed_for_channel_count")
		}
	}
	snap := job.Snapshot()
	return successReply(req.ID, map[string]bool{"flip_lr_stereo": snap.FlipLRStereo}, true)
}
