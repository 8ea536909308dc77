package typing

import (
	"context"
	"errors"
	"testing"

	"github.com/verte-zerg/codetype/internal/model"
)

func TestNotifierFiresOnce(t *testing.T) {
	sink := &recordSink{}
	n := NewNotifier(sink, nil)
	rec := model.CompletedLesson{LessonID: "js-loops", WPM: 40}

	if !n.Notify(context.Background(), rec) {
		t.Fatalf("expected first notify to emit")
	}
	if n.Notify(context.Background(), rec) {
		t.Fatalf("expected second notify to be a no-op")
	}
	if !n.Fired() {
		t.Fatalf("expected latch to be set")
	}
	if sink.count() != 1 {
		t.Fatalf("expected 1 record, got %d", sink.count())
	}

	n.Reset()
	if !n.Notify(context.Background(), rec) {
		t.Fatalf("expected notify after reset to emit")
	}
	if sink.count() != 2 {
		t.Fatalf("expected 2 records, got %d", sink.count())
	}
}

func TestNotifierRecorderErrorStillLatches(t *testing.T) {
	calls := 0
	n := NewNotifier(RecorderFunc(func(context.Context, model.CompletedLesson) error {
		calls++
		return errors.New("disk full")
	}), nil)
	n.Notify(context.Background(), model.CompletedLesson{LessonID: "x"})
	n.Notify(context.Background(), model.CompletedLesson{LessonID: "x"})
	if calls != 1 {
		t.Fatalf("expected recorder called once, got %d", calls)
	}
}

func TestNotifierAssignsID(t *testing.T) {
	var got model.CompletedLesson
	n := NewNotifier(RecorderFunc(func(_ context.Context, rec model.CompletedLesson) error {
		got = rec
		return nil
	}), nil)
	n.Notify(context.Background(), model.CompletedLesson{LessonID: "x"})
	if got.ID == "" {
		t.Fatalf("expected generated id")
	}
}
