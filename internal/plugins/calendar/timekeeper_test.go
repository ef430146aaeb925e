package calendar

import (
	"context"
	"testing"
)

// newClockService returns a service whose calendar "cal" runs at ratio.
func newClockService(t *testing.T, ratio float64, freq int) CalendarService {
	t.Helper()
	svc, _ := newTestService(t)
	_, err := svc.UpdateConfig(context.Background(), "cal", func(cfg *Config) error {
		cfg.Time.GameTimeRatio = ratio
		cfg.Time.UpdateFrequency = freq
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	return svc
}

func TestTimeKeeper_StartRequiresRatio(t *testing.T) {
	svc, _ := newTestService(t)
	keeper := NewTimeKeeper(svc)

	assertAppError(t, keeper.Start(context.Background(), "cal"), 422)
	if keeper.Running("cal") {
		t.Error("clock should not run without a ratio")
	}
	assertAppError(t, keeper.Start(context.Background(), "missing"), 404)
}

func TestTimeKeeper_StartAndPause(t *testing.T) {
	keeper := NewTimeKeeper(newClockService(t, 1, 0))
	ctx := context.Background()

	if err := keeper.Start(ctx, "cal"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !keeper.Running("cal") {
		t.Fatal("expected clock to run")
	}
	if got := len(keeper.cron.Entries()); got != 1 {
		t.Errorf("expected one scheduled entry, got %d", got)
	}

	// Restarting reschedules rather than doubling up.
	if err := keeper.Start(ctx, "cal"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := len(keeper.cron.Entries()); got != 1 {
		t.Errorf("expected one scheduled entry after restart, got %d", got)
	}

	keeper.Pause("cal")
	keeper.Pause("cal")
	if keeper.Running("cal") {
		t.Error("expected clock to be paused")
	}
	if got := len(keeper.cron.Entries()); got != 0 {
		t.Errorf("expected no scheduled entries, got %d", got)
	}
}

func TestTimeKeeper_FractionalRatioCarries(t *testing.T) {
	keeper := NewTimeKeeper(newClockService(t, 0.25, 1))
	if err := keeper.Start(context.Background(), "cal"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var got []int64
	for i := 0; i < 5; i++ {
		d, ok := keeper.nextDelta("cal")
		if !ok {
			t.Fatal("expected running clock")
		}
		got = append(got, d)
	}
	want := []int64{0, 0, 0, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected deltas %v, got %v", want, got)
		}
	}

	if _, ok := keeper.nextDelta("other"); ok {
		t.Error("unknown calendar should have no delta")
	}
}

func TestTimeKeeper_TickAdvancesClock(t *testing.T) {
	svc := newClockService(t, 30, 2)
	keeper := NewTimeKeeper(svc)
	ctx := context.Background()
	if err := keeper.Start(ctx, "cal"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, before, err := svc.CurrentTime(ctx, "cal")
	if err != nil {
		t.Fatalf("CurrentTime: %v", err)
	}

	keeper.tick("cal")
	keeper.tick("cal")

	_, after, err := svc.CurrentTime(ctx, "cal")
	if err != nil {
		t.Fatalf("CurrentTime: %v", err)
	}
	// Two ticks of 2 real seconds at 30x.
	if after-before != 120 {
		t.Errorf("expected the clock to advance 120s, got %d", after-before)
	}

	keeper.Pause("cal")
	keeper.tick("cal")
	if _, now, _ := svc.CurrentTime(ctx, "cal"); now != after {
		t.Error("paused clock advanced")
	}
}

func TestTimeKeeper_RunStopsWithContext(t *testing.T) {
	keeper := NewTimeKeeper(newClockService(t, 1, 1))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- keeper.Run(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestTimeKeeper_RejectsUnrepresentableRatio(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.UpdateConfig(context.Background(), "cal", func(cfg *Config) error {
		cfg.Time.GameTimeRatio = 1e30
		return nil
	})
	assertAppError(t, err, 422)
}

func TestTimeKeeper_NextDeltaSkipsOversizedStep(t *testing.T) {
	keeper := NewTimeKeeper(newClockService(t, 1, 1))
	keeper.clocks["cal"] = &clock{step: 1e30}

	if d, ok := keeper.nextDelta("cal"); ok {
		t.Errorf("expected no delta, got %d", d)
	}
}
