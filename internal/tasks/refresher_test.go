package tasks

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestRefreshOnce(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	// scored at testNow; the clock then moves forward six days
	drifting := Task{UserID: "u1", Title: "essay"}
	drifting.Reschedule(testNow.Add(8*day), TypeAssignment, testNow)
	drifting, _ = store.Create(ctx, drifting)

	steady := Task{UserID: "u1", Title: "someday"}
	steady.Reschedule(testNow.Add(60*day), TypeOther, testNow)
	steady, _ = store.Create(ctx, steady)

	done := Task{UserID: "u2", Title: "finished"}
	done.Reschedule(testNow.Add(8*day), TypeExam, testNow)
	done.SetCompleted(true, testNow)
	done, _ = store.Create(ctx, done)

	r := NewRefresher(store, time.Hour, log.New(io.Discard))
	r.now = func() time.Time { return testNow.Add(6 * day) }

	n, err := r.RefreshOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("updated = %d, want 1", n)
	}

	if got := store.tasks[drifting.ID].Priority; got != 90 {
		t.Errorf("drifting priority = %d, want 90", got)
	}
	if _, ok := store.setPri[steady.ID]; ok {
		t.Error("unchanged score should not be written")
	}
	if _, ok := store.setPri[done.ID]; ok {
		t.Error("completed tasks are not re-scored")
	}

	n, err = r.RefreshOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second pass updated = %d, want 0", n)
	}
}

func TestRefresherRunStopsOnCancel(t *testing.T) {
	r := NewRefresher(newMemStore(), time.Millisecond, log.New(io.Discard))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRefresherDisabled(t *testing.T) {
	r := NewRefresher(newMemStore(), 0, log.New(io.Discard))

	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled refresher should return immediately")
	}
}
