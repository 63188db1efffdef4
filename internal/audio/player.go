package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/logger"
)

const pollInterval = 10 * time.Millisecond

// Player loops one alarm sound at a time. If the sound cannot be played it
// falls back to a synthesized beep, and without an audio device to the
// terminal bell, so an alarm is never silent.
type Player struct {
	soundsDir  string
	output     func() (Output, error)
	bell       io.Writer
	toneEvery  time.Duration
	sampleRate int
	channels   int

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	lastErr error
}

type Option func(*Player)

// WithOutput replaces the system audio device.
func WithOutput(out Output) Option {
	return func(p *Player) {
		p.output = func() (Output, error) { return out, nil }
	}
}

// WithOutputError simulates a missing audio device.
func WithOutputError(err error) Option {
	return func(p *Player) {
		p.output = func() (Output, error) { return nil, err }
	}
}

// WithBell sets where the terminal bell is written when no device exists.
func WithBell(w io.Writer) Option {
	return func(p *Player) { p.bell = w }
}

// WithToneInterval sets how often the fallback tone repeats.
func WithToneInterval(d time.Duration) Option {
	return func(p *Player) { p.toneEvery = d }
}

func NewPlayer(soundsDir string, opts ...Option) *Player {
	p := &Player{
		soundsDir:  soundsDir,
		output:     SystemOutput,
		bell:       os.Stderr,
		toneEvery:  constants.FallbackToneEvery,
		sampleRate: constants.AudioSampleRate,
		channels:   constants.AudioChannels,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play starts looping sound, replacing anything already playing.
func (p *Player) Play(sound string) {
	p.Stop()

	pcm, loadErr := p.load(sound)
	out, outErr := p.output()

	stop := make(chan struct{})
	done := make(chan struct{})

	p.mu.Lock()
	p.stop = stop
	p.done = done
	switch {
	case outErr != nil:
		p.lastErr = outErr
	case loadErr != nil:
		p.lastErr = loadErr
	default:
		p.lastErr = nil
	}
	p.mu.Unlock()

	switch {
	case outErr != nil:
		logger.Warn("No audio device, falling back to terminal bell", "error", outErr)
		go p.bellLoop(stop, done)
	case loadErr != nil:
		logger.Warn("Alarm sound unavailable, falling back to tone", "sound", sound, "error", loadErr)
		tone := synthTone(constants.FallbackToneHz, constants.FallbackToneLength, p.sampleRate, p.channels)
		go p.toneLoop(out, tone, stop, done)
	default:
		logger.Debug("Playing alarm sound", "sound", sound)
		go p.loop(out, pcm, stop, done)
	}
}

// Stop halts playback and waits for the loop to exit. Safe to call repeatedly.
func (p *Player) Stop() {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	logger.Debug("Audio playback stopped")
}

// LastError reports why the most recent Play fell back, or nil.
func (p *Player) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// load reads <soundsDir>/<sound>.wav, then the default sound, and validates
// that the PCM matches the device format.
func (p *Player) load(sound string) ([]byte, error) {
	candidates := []string{sound}
	if sound != constants.DefaultSound {
		candidates = append(candidates, constants.DefaultSound)
	}

	var firstErr error
	for _, name := range candidates {
		path := filepath.Join(p.soundsDir, name+constants.SoundFileExtension)
		data, err := os.ReadFile(path)
		if err == nil {
			var format wavFormat
			var pcm []byte
			format, pcm, err = parseWAV(data)
			if err == nil {
				err = checkFormat(format, p.sampleRate, p.channels)
			}
			if err == nil && len(pcm) == 0 {
				err = fmt.Errorf("%s has no audio", path)
			}
			if err == nil {
				return pcm, nil
			}
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("sound %q: %w", name, err)
		}
	}
	return nil, firstErr
}

// playOnce plays pcm to completion. It returns false if stop fired.
func playOnce(out Output, pcm []byte, stop <-chan struct{}) (bool, error) {
	track, err := out.NewTrack(bytes.NewReader(pcm))
	if err != nil {
		return true, err
	}
	defer track.Close()

	track.Play()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for track.IsPlaying() {
		select {
		case <-stop:
			track.Pause()
			return false, nil
		case <-ticker.C:
		}
	}
	if err := track.Err(); err != nil {
		return true, fmt.Errorf("playback failed: %w", err)
	}
	return true, nil
}

func (p *Player) loop(out Output, pcm []byte, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		more, err := playOnce(out, pcm, stop)
		if err != nil {
			p.setErr(err)
			logger.Warn("Playback failed, falling back to tone", "error", err)
			p.toneLoopBody(out, synthTone(constants.FallbackToneHz, constants.FallbackToneLength, p.sampleRate, p.channels), stop)
			return
		}
		if !more {
			return
		}
		select {
		case <-stop:
			return
		default:
		}
	}
}

func (p *Player) toneLoop(out Output, tone []byte, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	p.toneLoopBody(out, tone, stop)
}

func (p *Player) toneLoopBody(out Output, tone []byte, stop <-chan struct{}) {
	ticker := time.NewTicker(p.toneEvery)
	defer ticker.Stop()
	for {
		more, err := playOnce(out, tone, stop)
		if err != nil {
			p.setErr(err)
			p.bellLoopBody(stop)
			return
		}
		if !more {
			return
		}
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

func (p *Player) bellLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	p.bellLoopBody(stop)
}

func (p *Player) bellLoopBody(stop <-chan struct{}) {
	ticker := time.NewTicker(p.toneEvery)
	defer ticker.Stop()
	for {
		fmt.Fprint(p.bell, "\a")
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

func (p *Player) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = err
}

// InstallDefaultSound writes a synthesized default alarm into dir unless one exists.
func InstallDefaultSound(dir string) (string, bool, error) {
	path := filepath.Join(dir, constants.DefaultSound+constants.SoundFileExtension)
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", false, fmt.Errorf("failed to create sounds directory: %w", err)
	}

	// Two beeps followed by a pause
	beep := synthTone(constants.FallbackToneHz, 200*time.Millisecond, constants.AudioSampleRate, constants.AudioChannels)
	gap := make([]byte, len(beep)/2)
	var pcm []byte
	pcm = append(pcm, beep...)
	pcm = append(pcm, gap...)
	pcm = append(pcm, beep...)
	pcm = append(pcm, make([]byte, len(beep)*2)...)

	if err := os.WriteFile(path, encodeWAV(pcm, constants.AudioSampleRate, constants.AudioChannels), 0644); err != nil {
		return "", false, fmt.Errorf("failed to write default sound: %w", err)
	}
	return path, true, nil
}
