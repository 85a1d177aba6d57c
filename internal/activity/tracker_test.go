package activity

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTouchSaturates(t *testing.T) {
	tr := NewTracker()
	for i := 1; i <= 10; i++ {
		tr.Touch(3)
		want := int32(min(i*Increment, MaxCount))
		if got := tr.Count(3); got != want {
			t.Fatalf("after %d touches count = %d, want %d", i, got, want)
		}
	}
}

func TestDecaysAfterExactlyCountTicks(t *testing.T) {
	tr := NewTracker()
	tr.Touch(2)
	tr.Touch(2)
	n := tr.Count(2)
	for i := int32(1); i < n; i++ {
		if s := tr.Tick(); !s[2] {
			t.Fatalf("indicator off after %d of %d ticks", i, n)
		}
	}
	if s := tr.Tick(); s[2] {
		t.Fatalf("indicator still on after %d ticks", n)
	}
	for i := 0; i < 5; i++ {
		if s := tr.Tick(); s[2] {
			t.Fatal("indicator came back without activity")
		}
	}
	tr.Touch(2)
	if !tr.Lit(2) {
		t.Error("indicator not lit after new activity")
	}
}

func TestRepeatedActivityKeepsIndicatorOn(t *testing.T) {
	tr := NewTracker()
	tr.Touch(0)
	for i := 0; i < 100; i++ {
		tr.Tick()
		tr.Touch(0)
		if !tr.Lit(0) {
			t.Fatalf("indicator dropped at tick %d", i)
		}
	}
}

func TestHighChannelsShareIndicators(t *testing.T) {
	tr := NewTracker()
	tr.Touch(10)
	s := tr.Indicators()
	want := State{}
	want[2] = true
	want[HighChannel] = true
	if s != want {
		t.Errorf("indicators = %s, want %s", s, want)
	}

	tr.Touch(1)
	if s := tr.Indicators(); !s[1] || !s[HighChannel] {
		t.Errorf("indicators = %s", s)
	}
}

func TestLowChannelsLeaveHighIndicatorOff(t *testing.T) {
	tr := NewTracker()
	for ch := uint8(0); ch < 8; ch++ {
		tr.Touch(ch)
	}
	if s := tr.Indicators(); s[HighChannel] {
		t.Errorf("high channel indicator lit: %s", s)
	}
}

func TestLampTest(t *testing.T) {
	tr := NewTracker()
	tr.LampTest()
	if got := tr.Indicators().String(); got != "#########" {
		t.Fatalf("after lamp test indicators = %s", got)
	}
	if tr.Count(0) != 25 || tr.Count(15) != 10 {
		t.Errorf("counts = %d..%d, want 25..10", tr.Count(0), tr.Count(15))
	}
}

func TestConcurrentTouchAndTick(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			tr.Touch(uint8(i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			tr.Tick()
		}
	}()
	wg.Wait()
	for ch := uint8(0); ch < Channels; ch++ {
		if c := tr.Count(ch); c < 0 || c > MaxCount {
			t.Errorf("channel %d count %d out of range", ch, c)
		}
	}
}

func TestRunStopsWithContext(t *testing.T) {
	tr := NewTracker()
	tr.Touch(0)
	ctx, cancel := context.WithCancel(context.Background())
	states := make(chan State, 100)
	done := make(chan struct{})
	go func() {
		tr.Run(ctx, time.Millisecond, func(s State) {
			select {
			case states <- s:
			default:
			}
		})
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for tr.Lit(0) {
		select {
		case <-states:
		case <-deadline:
			t.Fatal("indicator never went out")
		}
	}
	cancel()
	<-done
}

func TestRunLogsIndicatorChanges(t *testing.T) {
	var logs bytes.Buffer
	tr := NewTracker(WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	tr.Touch(9)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Run(ctx, time.Millisecond, nil)
		close(done)
	}()
	deadline := time.After(2 * time.Second)
	for tr.Lit(9) {
		select {
		case <-deadline:
			t.Fatal("indicator never went out")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done

	out := logs.String()
	if !strings.Contains(out, "activity: indicators changed") || !strings.Contains(out, "lit=.#......#") {
		t.Fatalf("log:\n%s", out)
	}
}
