package typing

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/codetype/internal/model"
)

// Recorder receives completed-lesson records.
type Recorder interface {
	RecordCompletion(ctx context.Context, rec model.CompletedLesson) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, rec model.CompletedLesson) error

// RecordCompletion implements Recorder.
func (f RecorderFunc) RecordCompletion(ctx context.Context, rec model.CompletedLesson) error {
	return f(ctx, rec)
}

// Notifier hands a completed-lesson record to a Recorder at most once until
// it is reset.
type Notifier struct {
	mu       sync.Mutex
	fired    bool
	recorder Recorder
	log      logrus.FieldLogger
}

// NewNotifier returns a Notifier delivering to recorder. A nil recorder
// discards records but still honors the latch.
func NewNotifier(recorder Recorder, log logrus.FieldLogger) *Notifier {
	if log == nil {
		log = discardLogger()
	}
	return &Notifier{recorder: recorder, log: log}
}

// Notify delivers rec unless the latch has already fired. It reports whether
// the record was emitted.
func (n *Notifier) Notify(ctx context.Context, rec model.CompletedLesson) bool {
	if !n.arm() {
		return false
	}
	n.deliver(ctx, rec)
	return true
}

// Fired reports whether a record has been emitted since the last reset.
func (n *Notifier) Fired() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.fired
}

// Reset clears the latch.
func (n *Notifier) Reset() {
	n.mu.Lock()
	n.fired = false
	n.mu.Unlock()
}

func (n *Notifier) arm() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fired {
		n.log.WithField("event", "duplicate_completion").Debug("completion already emitted")
		return false
	}
	n.fired = true
	return true
}

func (n *Notifier) deliver(ctx context.Context, rec model.CompletedLesson) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	entry := n.log.WithFields(logrus.Fields{
		"lesson":   rec.LessonID,
		"wpm":      rec.WPM,
		"accuracy": rec.Accuracy,
		"errors":   rec.Errors,
	})
	if n.recorder == nil {
		entry.Debug("lesson completed without recorder")
		return
	}
	if err := n.recorder.RecordCompletion(ctx, rec); err != nil {
		entry.WithError(err).Error("failed to record completed lesson")
		return
	}
	entry.Info("lesson completed")
}
