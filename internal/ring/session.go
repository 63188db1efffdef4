// Package ring runs the ringing phase of an alarm: sound loops until the
// step target is reached or an emergency stop is granted.
package ring

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/julianstephens/stepalarm/internal/logger"
	"github.com/julianstephens/stepalarm/internal/models"
	"github.com/julianstephens/stepalarm/internal/sensor"
)

// State of a ring session.
type State int

const (
	Ringing State = iota
	Completed
	StoppedByEmergency
)

func (s State) String() string {
	switch s {
	case Ringing:
		return "ringing"
	case Completed:
		return "completed"
	case StoppedByEmergency:
		return "stopped-by-emergency"
	}
	return "unknown"
}

// Audio plays the alarm sound in a loop.
type Audio interface {
	Play(sound string)
	Stop()
}

// QuotaUser grants emergency stops.
type QuotaUser interface {
	Use() (bool, error)
}

// Snapshot is the observable state of a session.
type Snapshot struct {
	AlarmID     string
	Label       string
	State       State
	Steps       int
	Target      int
	Progress    float64
	SensorError string
	// Closed is set when the session was dismissed externally rather than by
	// walking or an emergency stop.
	Closed    bool
	StartedAt time.Time
}

// Ended reports whether the session has reached a terminal state or was closed.
func (s Snapshot) Ended() bool {
	return s.State != Ringing || s.Closed
}

var (
	ErrAlreadyStarted = errors.New("ring session already started")
	ErrClosed         = errors.New("ring session closed")
)

const sensorUnavailableMsg = "Step counting is not available on this device"

// Session owns one ringing alarm. All state changes happen on a single event
// loop goroutine; the exported methods only send it requests.
type Session struct {
	alarm  models.Alarm
	audio  Audio
	sensor sensor.Sensor
	quota  QuotaUser
	now    func() time.Time

	// OnComplete runs once, on the loop goroutine, when the target is reached.
	OnComplete func(Snapshot)

	emergency chan chan emergencyResult
	closeReq  chan struct{}
	closeOnce sync.Once
	done      chan struct{}
	updates   chan Snapshot

	mu       sync.Mutex
	started  bool
	snap     Snapshot
	release  sync.Once
	sensorOn bool
}

type emergencyResult struct {
	ok  bool
	err error
}

type Option func(*Session)

// WithClock replaces time.Now for the session epoch.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func NewSession(alarm models.Alarm, audio Audio, sens sensor.Sensor, quota QuotaUser, opts ...Option) *Session {
	s := &Session{
		alarm:     alarm,
		audio:     audio,
		sensor:    sens,
		quota:     quota,
		now:       time.Now,
		emergency: make(chan chan emergencyResult),
		closeReq:  make(chan struct{}),
		done:      make(chan struct{}),
		updates:   make(chan Snapshot, 1),
		snap: Snapshot{
			AlarmID: alarm.ID,
			Label:   alarm.Label,
			State:   Ringing,
			Target:  alarm.TargetSteps,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Progress is steps/target clamped to [0, 1]. A non-positive target counts as done.
func Progress(steps, target int) float64 {
	if target <= 0 {
		return 1
	}
	if steps <= 0 {
		return 0
	}
	p := float64(steps) / float64(target)
	if p > 1 {
		return 1
	}
	return p
}

// Start begins ringing and step tracking. The session ends when the target is
// reached, an emergency stop is granted, Close is called, or ctx is done.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	select {
	case <-s.done:
		s.mu.Unlock()
		return ErrClosed
	default:
	}
	s.started = true
	s.snap.StartedAt = s.now()
	epoch := s.snap.StartedAt
	s.mu.Unlock()

	logger.Info("Alarm ringing", "alarm", s.alarm.ID, "target", s.alarm.TargetSteps, "sound", s.alarm.SoundName)
	s.audio.Play(s.alarm.SoundName)

	var updates <-chan sensor.Update
	if s.sensor == nil || !s.sensor.Available() {
		s.setSensorError(sensorUnavailableMsg)
	} else {
		ch, err := s.sensor.Start(ctx, epoch)
		if err != nil {
			logger.Warn("Step sensor failed to start", "alarm", s.alarm.ID, "error", err)
			s.setSensorError(sensorUnavailableMsg)
		} else {
			updates = ch
			s.mu.Lock()
			s.sensorOn = true
			s.mu.Unlock()
		}
	}

	s.publish()
	go s.run(ctx, updates)
	return nil
}

func (s *Session) run(ctx context.Context, updates <-chan sensor.Update) {
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if u.Err != nil {
				logger.Warn("Step sensor failed", "alarm", s.alarm.ID, "error", u.Err)
				s.setSensorError("Step counting stopped: " + u.Err.Error())
				updates = nil
				s.publish()
				continue
			}
			if s.applySteps(u.Steps) {
				s.finish()
				s.mu.Lock()
				snap := s.snap
				s.mu.Unlock()
				if s.OnComplete != nil {
					s.OnComplete(snap)
				}
				return
			}

		case reply := <-s.emergency:
			ok, err := s.quota.Use()
			reply <- emergencyResult{ok: ok, err: err}
			if ok {
				logger.Info("Alarm stopped by emergency stop", "alarm", s.alarm.ID)
				s.mu.Lock()
				s.snap.State = StoppedByEmergency
				s.mu.Unlock()
				s.finish()
				return
			}

		case <-s.closeReq:
			s.markClosed()
			s.finish()
			return

		case <-ctx.Done():
			s.markClosed()
			s.finish()
			return
		}
	}
}

// applySteps records a reading and reports whether it completed the session.
func (s *Session) applySteps(steps int) bool {
	s.mu.Lock()
	s.snap.Steps = steps
	s.snap.Progress = Progress(steps, s.snap.Target)
	completed := s.snap.State == Ringing && steps >= s.snap.Target
	if completed {
		s.snap.State = Completed
	}
	s.mu.Unlock()

	if completed {
		logger.Info("Step target reached", "alarm", s.alarm.ID, "steps", steps)
	} else {
		s.publish()
	}
	return completed
}

func (s *Session) markClosed() {
	s.mu.Lock()
	s.snap.Closed = true
	s.mu.Unlock()
	logger.Info("Ring session dismissed", "alarm", s.alarm.ID)
}

// finish releases audio and sensor exactly once and publishes the final state.
func (s *Session) finish() {
	s.release.Do(func() {
		s.audio.Stop()
		s.mu.Lock()
		sensorOn := s.sensorOn
		s.sensorOn = false
		s.mu.Unlock()
		if sensorOn {
			s.sensor.Stop()
		}
		s.publish()
		close(s.updates)
		close(s.done)
	})
}

// EmergencyStop asks to end the session using one emergency stop. It returns
// false without error when the monthly quota is exhausted or the session is no
// longer ringing.
func (s *Session) EmergencyStop(ctx context.Context) (bool, error) {
	reply := make(chan emergencyResult, 1)
	select {
	case s.emergency <- reply:
	case <-s.done:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}

	select {
	case r := <-reply:
		return r.ok, r.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Close dismisses the session from outside, e.g. the user quit the ring
// screen. Safe to call more than once and after the session ended.
func (s *Session) Close() {
	// An unstarted session is ended under mu so a concurrent Start either
	// sees done closed or has already claimed the session.
	s.mu.Lock()
	if !s.started {
		s.release.Do(func() {
			close(s.updates)
			close(s.done)
		})
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.closeOnce.Do(func() {
		select {
		case s.closeReq <- struct{}{}:
		case <-s.done:
		}
	})
	<-s.done
}

// Updates delivers snapshots as they change. Only the latest pending snapshot
// is kept. The channel is closed when the session ends.
func (s *Session) Updates() <-chan Snapshot {
	return s.updates
}

// Done is closed when the session has ended and released its resources.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Alarm returns the alarm this session rings for.
func (s *Session) Alarm() models.Alarm {
	return s.alarm
}

func (s *Session) setSensorError(msg string) {
	s.mu.Lock()
	s.snap.SensorError = msg
	s.mu.Unlock()
}

// publish offers the current snapshot, replacing an unread one.
func (s *Session) publish() {
	snap := s.Snapshot()
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- snap:
	default:
	}
}
