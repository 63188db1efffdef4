// Package audio loops alarm sounds through the system audio device.
package audio

import (
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/logger"
)

// Track is one playing stream. *oto.Player implements it.
type Track interface {
	Play()
	Pause()
	IsPlaying() bool
	// Err reports an asynchronous playback failure.
	Err() error
	Close() error
}

// Output creates tracks from signed 16-bit little-endian PCM at the device format.
type Output interface {
	NewTrack(r io.Reader) (Track, error)
}

// oto allows one context per process, so it is created once and shared.
var (
	otoCtx     *oto.Context
	otoCtxErr  error
	otoCtxOnce sync.Once
)

type otoOutput struct {
	ctx *oto.Context
}

// SystemOutput returns the process-wide device output, opening it on first use.
func SystemOutput() (Output, error) {
	otoCtxOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   constants.AudioSampleRate,
			ChannelCount: constants.AudioChannels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			otoCtxErr = fmt.Errorf("failed to initialize audio context: %w", err)
			logger.Warn("Audio device unavailable", "error", err)
			return
		}
		<-ready
		otoCtx = ctx
		logger.Debug("Audio context initialized", "sample_rate", constants.AudioSampleRate)
	})
	if otoCtxErr != nil {
		return nil, otoCtxErr
	}
	return otoOutput{ctx: otoCtx}, nil
}

func (o otoOutput) NewTrack(r io.Reader) (Track, error) {
	return o.ctx.NewPlayer(r), nil
}
