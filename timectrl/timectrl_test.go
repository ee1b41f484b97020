package timectrl

import (
	"testing"
	"time"
)

func TestTimeControllerSetTime(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, time.Second, RealTime)

	newNow := start.Add(42 * time.Second)
	tc.SetTime(newNow)

	if got := tc.Now(); !got.Equal(newNow) {
		t.Fatalf("Now() = %v, want %v", got, newNow)
	}
	if got := tc.Elapsed(); got != 42*time.Second {
		t.Fatalf("Elapsed() = %v, want 42s", got)
	}
}

func TestTimeControllerStepNotifiesListeners(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 20*time.Millisecond, Accelerated)

	var seen []time.Time
	tc.AddListener(func(now time.Time) { seen = append(seen, now) })

	tc.Step()
	tc.Step()

	if len(seen) != 2 {
		t.Fatalf("listener called %d times, want 2", len(seen))
	}
	if want := start.Add(40 * time.Millisecond); !seen[1].Equal(want) {
		t.Fatalf("second tick = %v, want %v", seen[1], want)
	}
}

func TestTimeControllerRunStopsEarly(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 10*time.Millisecond, Accelerated)

	ticks := 0
	tc.AddListener(func(time.Time) { ticks++ })

	tc.Run(time.Second, func() bool { return ticks >= 5 })
	if ticks != 5 {
		t.Fatalf("ticks = %d, want 5", ticks)
	}

	tc.Run(30*time.Millisecond, nil)
	if ticks != 8 {
		t.Fatalf("ticks = %d, want 8 after bounded run", ticks)
	}
}

func TestTimeControllerAcceleratedRunUpdatesNow(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 5*time.Millisecond, Accelerated)

	var clock SimClock = tc
	tc.Run(15*time.Millisecond, nil)

	expected := start.Add(15 * time.Millisecond)
	if got := clock.Now(); !got.Equal(expected) {
		t.Fatalf("Now() = %v, want %v", got, expected)
	}
	if got := clock.Elapsed(); got != 15*time.Millisecond {
		t.Fatalf("Elapsed() = %v, want 15ms", got)
	}
}

func TestTimeControllerRealTimeRunKeepsPace(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 5*time.Millisecond, RealTime)

	began := time.Now()
	tc.Run(50*time.Millisecond, nil)
	wall := time.Since(began)

	if got := tc.Elapsed(); got != 50*time.Millisecond {
		t.Fatalf("Elapsed() = %v, want 50ms", got)
	}
	if wall < tc.Elapsed() {
		t.Fatalf("real-time run took %v of wall time for %v of simulation", wall, tc.Elapsed())
	}
}

func TestTimeControllerRealTimeRunStops(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, time.Hour, RealTime)

	done := make(chan struct{})
	go func() {
		defer close(done)
		tc.Run(0, func() bool { return true })
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("stop was not checked before waiting on the first tick")
	}
	if got := tc.Elapsed(); got != 0 {
		t.Fatalf("Elapsed() = %v, want 0", got)
	}
}
