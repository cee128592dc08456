package stage

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestTracker_RecordsStages(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	ctx := context.Background()

	if err := tr.Run(ctx, "probe", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if err := tr.Run(ctx, "transcribe", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	snap := tr.Snapshot()
	if _, ok := snap["probe"]; !ok {
		t.Error("probe missing from snapshot")
	}
	if _, ok := snap["transcribe"]; !ok {
		t.Error("transcribe missing from snapshot")
	}

	events := tr.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Stage != "probe" || events[1].Stage != "transcribe" {
		t.Errorf("event order: %q, %q", events[0].Stage, events[1].Stage)
	}
}

func TestTracker_PropagatesError(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	boom := errors.New("boom")

	err := tr.Run(context.Background(), "plan", func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	events := tr.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Error != "boom" {
		t.Errorf("event error = %q, want boom", events[0].Error)
	}
	// The stage still appears in the snapshot despite failing.
	if _, ok := tr.Snapshot()["plan"]; !ok {
		t.Error("failed stage missing from snapshot")
	}
}

func TestTracker_RepeatedStageAccumulates(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	for i := 0; i < 3; i++ {
		_ = tr.Run(context.Background(), "silence", func(context.Context) error { return nil })
	}
	if got := len(tr.Events()); got != 3 {
		t.Errorf("events = %d, want 3", got)
	}
	sum := tr.Summary("proj-1", "ROUGH_CUT_PLAN_READY")
	if got := len(sum.Order); got != 1 {
		t.Errorf("order length = %d, want 1 (stage recorded once)", got)
	}
}

func TestTracker_Summary(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	_ = tr.Run(context.Background(), "probe", func(context.Context) error { return nil })

	sum := tr.Summary("proj-9", "ROUGH_CUT_FAILED")
	if sum.ProjectID != "proj-9" || sum.Status != "ROUGH_CUT_FAILED" {
		t.Errorf("summary = %+v", sum)
	}
	if sum.FinishedAt.Before(sum.StartedAt) {
		t.Error("finishedAt before startedAt")
	}
	if len(sum.Order) != 1 || sum.Order[0] != "probe" {
		t.Errorf("order = %v", sum.Order)
	}
	if _, ok := sum.StageMs["probe"]; !ok {
		t.Error("probe missing from stageMs")
	}
}
