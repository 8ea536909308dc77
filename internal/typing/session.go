package typing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/codetype/internal/model"
)

// DefaultTickInterval is how often live metrics are refreshed while running.
const DefaultTickInterval = 100 * time.Millisecond

var (
	// ErrOutOfRange is returned when a keystroke targets an index other than
	// the current cursor. The session is left unchanged.
	ErrOutOfRange = errors.New("keystroke index does not match cursor")
	// ErrCompleted is returned for keystrokes after the lesson is finished.
	ErrCompleted = errors.New("session already completed")
	// ErrClosed is returned for keystrokes after Close.
	ErrClosed = errors.New("session closed")
)

// State is the lifecycle state of a Session.
type State int

// Session states.
const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	default:
		return "idle"
	}
}

// PauseMode selects how paused time is accounted.
type PauseMode int

const (
	// PauseWallClock keeps the original start time, so paused time counts
	// toward elapsed time.
	PauseWallClock PauseMode = iota
	// PauseActiveTime counts only the time spent running.
	PauseActiveTime
)

// ParsePauseMode parses "wall" or "active". Empty means wall.
func ParsePauseMode(v string) (PauseMode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "wall":
		return PauseWallClock, nil
	case "active":
		return PauseActiveTime, nil
	default:
		return PauseWallClock, fmt.Errorf("unknown pause mode %q (want wall or active)", v)
	}
}

func (m PauseMode) String() string {
	if m == PauseActiveTime {
		return "active"
	}
	return "wall"
}

// Options configures a Session.
type Options struct {
	PracticeMode bool
	PauseMode    PauseMode
	// TickInterval is the metrics refresh period while running. Zero uses
	// DefaultTickInterval; a negative value disables the ticker.
	TickInterval time.Duration
	Now          func() time.Time
	Recorder     Recorder
	Logger       logrus.FieldLogger
}

// Snapshot is a copy of the session state safe to read without locking.
type Snapshot struct {
	LessonID         string
	State            State
	CursorIndex      int
	Length           int
	TypedText        string
	IncorrectIndices []int
	ErrorCount       int
	StartedAt        *time.Time
	Running          bool
	Completed        bool
	PracticeMode     bool
	Elapsed          time.Duration
	Metrics          Metrics
}

// IsIncorrect reports whether index i was mistyped.
func (s Snapshot) IsIncorrect(i int) bool {
	idx := sort.SearchInts(s.IncorrectIndices, i)
	return idx < len(s.IncorrectIndices) && s.IncorrectIndices[idx] == i
}

// Progress returns the typed share of the stream as a rounded percentage.
func (s Snapshot) Progress() int {
	if s.Length == 0 {
		return 0
	}
	return int(math.Round(float64(s.CursorIndex) / float64(s.Length) * 100))
}

// Session tracks one attempt at typing a lesson. All methods are safe for
// concurrent use; subscribers are invoked outside the session lock.
type Session struct {
	mu sync.Mutex

	stream    *Stream
	lesson    model.Lesson
	pauseMode PauseMode
	tickEvery time.Duration
	now       func() time.Time
	log       logrus.FieldLogger
	notifier  *Notifier

	cursor        int
	typed         strings.Builder
	incorrect     []int
	errorCount    int
	started       bool
	startedAt     time.Time
	running       bool
	resumedAt     time.Time
	activeElapsed time.Duration
	completed     bool
	endedAt       time.Time
	metrics       Metrics
	practiceMode  bool
	closed        bool

	tickGen  int
	stopTick func()

	subs    map[int]func(Snapshot)
	nextSub int
}

// NewSession creates an idle session for lesson.
func NewSession(lesson model.Lesson, opts Options) *Session {
	s := &Session{
		stream:       NewStream(lesson.Code),
		lesson:       lesson,
		pauseMode:    opts.PauseMode,
		tickEvery:    opts.TickInterval,
		now:          opts.Now,
		log:          opts.Logger,
		practiceMode: opts.PracticeMode,
		subs:         map[int]func(Snapshot){},
	}
	if s.tickEvery == 0 {
		s.tickEvery = DefaultTickInterval
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = discardLogger()
	}
	s.log = s.log.WithField("lesson", lesson.ID)
	s.notifier = NewNotifier(opts.Recorder, s.log)
	s.resetLocked()
	return s
}

// Stream returns the target text.
func (s *Session) Stream() *Stream {
	return s.stream
}

// Lesson returns the lesson descriptor the session was created for.
func (s *Session) Lesson() model.Lesson {
	return s.lesson
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(s.now())
}

// Subscribe registers fn to be called after every state change. The
// returned function removes the subscription.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SetPracticeMode toggles whether the surrounding UI should skip recording
// progress for this attempt. Metrics are unaffected.
func (s *Session) SetPracticeMode(on bool) {
	s.update(func(time.Time) bool {
		if s.practiceMode == on {
			return false
		}
		s.practiceMode = on
		return true
	})
}

// Start begins or resumes the session. It is a no-op while running or
// after completion.
func (s *Session) Start() {
	s.update(s.startLocked)
}

// Pause stops accepting time toward the run. Counters and the start time are
// kept.
func (s *Session) Pause() {
	s.update(func(now time.Time) bool {
		if !s.running {
			return false
		}
		s.running = false
		s.activeElapsed += now.Sub(s.resumedAt)
		s.stopTickerLocked()
		return true
	})
}

// Reset returns the session to Idle from any state.
func (s *Session) Reset() {
	s.update(func(time.Time) bool {
		s.resetLocked()
		return true
	})
}

// Tick recomputes metrics from the current elapsed time. It does nothing
// unless the session is running.
func (s *Session) Tick() {
	s.update(func(now time.Time) bool {
		if !s.running {
			return false
		}
		s.recomputeLocked(now)
		return true
	})
}

// AcceptKeystroke records typed as the character entered at index. The
// index must equal the current cursor. Mismatches are recorded as errors
// but never block progress.
func (s *Session) AcceptKeystroke(typed rune, index int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.completed {
		s.mu.Unlock()
		return ErrCompleted
	}
	if index != s.cursor || index >= s.stream.Len() {
		cursor := s.cursor
		s.mu.Unlock()
		s.log.WithFields(logrus.Fields{
			"event":  "out_of_range_keystroke",
			"index":  index,
			"cursor": cursor,
		}).Debug("rejected keystroke")
		return ErrOutOfRange
	}

	now := s.now()
	if !s.running {
		s.startLocked(now)
	}
	expected, _ := s.stream.At(index)
	s.typed.WriteRune(typed)
	if typed != expected {
		s.incorrect = append(s.incorrect, index)
		s.errorCount++
	}
	s.cursor = index + 1
	s.recomputeLocked(now)

	var (
		rec      model.CompletedLesson
		finished bool
	)
	if s.cursor == s.stream.Len() {
		elapsed := s.elapsedLocked(now)
		s.completed = true
		s.endedAt = now
		s.running = false
		s.activeElapsed = elapsed
		s.stopTickerLocked()
		rec = s.recordLocked(now)
		finished = s.notifier.arm()
	}
	snap := s.snapshotLocked(now)
	subs := s.subscribersLocked()
	s.mu.Unlock()

	if finished {
		s.notifier.deliver(context.Background(), rec)
	}
	for _, fn := range subs {
		fn(snap)
	}
	return nil
}

// NotifyIfComplete re-runs the completion path. It emits a record only for a
// completed session whose notifier has not fired since the last reset, and
// reports whether it did.
func (s *Session) NotifyIfComplete() bool {
	s.mu.Lock()
	if !s.completed {
		s.mu.Unlock()
		return false
	}
	rec := s.recordLocked(s.endedAt)
	s.mu.Unlock()
	return s.notifier.Notify(context.Background(), rec)
}

// Close stops the ticker and drops subscribers. Further keystrokes return
// ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.running = false
	s.stopTickerLocked()
	s.subs = map[int]func(Snapshot){}
}

func (s *Session) update(fn func(now time.Time) bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	now := s.now()
	if !fn(now) {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked(now)
	subs := s.subscribersLocked()
	s.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Session) startLocked(now time.Time) bool {
	if s.completed || s.running {
		return false
	}
	if !s.started {
		s.started = true
		s.startedAt = now
	}
	s.running = true
	s.resumedAt = now
	s.startTickerLocked()
	return true
}

func (s *Session) resetLocked() {
	s.stopTickerLocked()
	s.cursor = 0
	s.typed.Reset()
	s.incorrect = nil
	s.errorCount = 0
	s.started = false
	s.startedAt = time.Time{}
	s.running = false
	s.resumedAt = time.Time{}
	s.activeElapsed = 0
	s.completed = false
	s.endedAt = time.Time{}
	s.metrics = IdleMetrics
	s.notifier.Reset()
}

func (s *Session) recomputeLocked(now time.Time) {
	s.metrics = Compute(s.cursor, s.elapsedLocked(now), s.errorCount)
}

func (s *Session) elapsedLocked(now time.Time) time.Duration {
	if !s.started {
		return 0
	}
	if s.completed {
		if s.pauseMode == PauseActiveTime {
			return s.activeElapsed
		}
		return s.endedAt.Sub(s.startedAt)
	}
	if s.pauseMode == PauseActiveTime {
		elapsed := s.activeElapsed
		if s.running {
			elapsed += now.Sub(s.resumedAt)
		}
		return elapsed
	}
	return now.Sub(s.startedAt)
}

func (s *Session) stateLocked() State {
	switch {
	case s.completed:
		return StateCompleted
	case s.running:
		return StateRunning
	case s.started:
		return StatePaused
	default:
		return StateIdle
	}
}

func (s *Session) recordLocked(now time.Time) model.CompletedLesson {
	return model.CompletedLesson{
		LessonID:     s.lesson.ID,
		Language:     s.lesson.Language,
		Topic:        s.lesson.Topic,
		CompletedAt:  now,
		WPM:          s.metrics.WPM,
		CPM:          s.metrics.CPM,
		Accuracy:     s.metrics.Accuracy,
		Errors:       s.errorCount,
		TimeSpentMs:  s.elapsedLocked(now).Milliseconds(),
		PracticeMode: s.practiceMode,
	}
}

func (s *Session) snapshotLocked(now time.Time) Snapshot {
	// Indices only grow between resets, so snapshots share the prefix.
	n := len(s.incorrect)
	snap := Snapshot{
		LessonID:         s.lesson.ID,
		State:            s.stateLocked(),
		CursorIndex:      s.cursor,
		Length:           s.stream.Len(),
		TypedText:        s.typed.String(),
		IncorrectIndices: s.incorrect[:n:n],
		ErrorCount:       s.errorCount,
		Running:          s.running,
		Completed:        s.completed,
		PracticeMode:     s.practiceMode,
		Elapsed:          s.elapsedLocked(now),
		Metrics:          s.metrics,
	}
	if s.started {
		startedAt := s.startedAt
		snap.StartedAt = &startedAt
	}
	return snap
}

func (s *Session) subscribersLocked() []func(Snapshot) {
	if len(s.subs) == 0 {
		return nil
	}
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}

func (s *Session) startTickerLocked() {
	if s.tickEvery <= 0 || s.stopTick != nil || s.closed {
		return
	}
	s.tickGen++
	gen := s.tickGen
	done := make(chan struct{})
	ticker := time.NewTicker(s.tickEvery)
	s.stopTick = func() {
		ticker.Stop()
		close(done)
	}
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.tick(gen)
			}
		}
	}()
}

func (s *Session) stopTickerLocked() {
	if s.stopTick == nil {
		return
	}
	s.stopTick()
	s.stopTick = nil
}

// tick is the ticker callback; stale generations are ignored.
func (s *Session) tick(gen int) {
	s.update(func(now time.Time) bool {
		if gen != s.tickGen || !s.running {
			return false
		}
		s.recomputeLocked(now)
		return true
	})
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
