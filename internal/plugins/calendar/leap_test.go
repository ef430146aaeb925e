package calendar

import "testing"

func TestLeapEvery_FourYearsFromZero(t *testing.T) {
	def := mustBuild(t, gregorianLikeConfig())

	for _, y := range []int{0, 4, 8, -4} {
		if !def.IsLeapYear(y) {
			t.Errorf("year %d should be a leap year", y)
		}
		if got := def.DaysInYear(y); got != 366 {
			t.Errorf("year %d: expected 366 days, got %d", y, got)
		}
	}
	for _, y := range []int{1, 2, 3, 5, -1, -2, -3} {
		if def.IsLeapYear(y) {
			t.Errorf("year %d should not be a leap year", y)
		}
		if got := def.DaysInYear(y); got != 365 {
			t.Errorf("year %d: expected 365 days, got %d", y, got)
		}
	}
}

func TestLeapEvery_Offset(t *testing.T) {
	r := LeapEvery{Interval: 4, Offset: 2}
	for y, want := range map[int]bool{2: true, 6: true, -2: true, 0: false, 4: false, 3: false} {
		if got := r.isLeap(y); got != want {
			t.Errorf("isLeap(%d) = %v, want %v", y, got, want)
		}
	}
}

func TestLeapEvery_ZeroIntervalNeverLeap(t *testing.T) {
	cfg := gregorianLikeConfig()
	cfg.LeapYear = LeapRuleConfig{Rule: "every", Interval: 0}
	def := mustBuild(t, cfg)

	for y := -10; y <= 10; y++ {
		if def.IsLeapYear(y) {
			t.Fatalf("year %d should not be a leap year with interval 0", y)
		}
	}
}

func TestLeapGregorian(t *testing.T) {
	cases := map[int]bool{
		2000: true, 2024: true, 1900: false, 2023: false,
		0: true, -4: true, -100: false, -400: true,
	}
	for y, want := range cases {
		if got := (LeapGregorian{}).isLeap(y); got != want {
			t.Errorf("isLeap(%d) = %v, want %v", y, got, want)
		}
	}
}

func TestCountLeap_MatchesIteration(t *testing.T) {
	rules := []interface {
		LeapRule
		leapCounter
	}{
		LeapNone{},
		LeapEvery{Interval: 4},
		LeapEvery{Interval: 7, Offset: 3},
		LeapEvery{Interval: 0},
		LeapGregorian{},
	}
	for _, r := range rules {
		for _, rng := range [][2]int{{-450, 450}, {-3, 1}, {1, 401}, {5, 5}, {-801, -399}} {
			var want int64
			for y := rng[0]; y < rng[1]; y++ {
				if r.isLeap(y) {
					want++
				}
			}
			if got := r.countLeap(rng[0], rng[1]); got != want {
				t.Errorf("%T%+v countLeap(%d, %d) = %d, want %d", r, r, rng[0], rng[1], got, want)
			}
		}
	}
}

func TestLeapRuleFromConfig_UnknownRule(t *testing.T) {
	cfg := gregorianLikeConfig()
	cfg.LeapYear = LeapRuleConfig{Rule: "lunar"}
	_, err := BuildDefinition(cfg)
	assertConfigError(t, err)
}

func TestLeapRuleFromConfig_Normalized(t *testing.T) {
	cfg := gregorianLikeConfig()
	cfg.LeapYear = LeapRuleConfig{Rule: "custom", Interval: 5, Offset: 1}
	def := mustBuild(t, cfg)

	got := def.Config().LeapYear
	want := LeapRuleConfig{Rule: "every", Interval: 5, Offset: 1}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestLeapCustom_Periodic(t *testing.T) {
	cfg := gregorianLikeConfig()
	// Leap in years 0, 3 and 5 of every 8-year cycle.
	cfg.CustomLeap = &LeapCustom{
		ReferenceYear: 0,
		Period:        8,
		Check: func(n int) bool {
			switch floorMod(n, 8) {
			case 0, 3, 5:
				return true
			}
			return false
		},
	}
	def := mustBuild(t, cfg)

	if !def.IsLeapYear(-5) || !def.IsLeapYear(11) || def.IsLeapYear(1) {
		t.Error("custom rule not applied")
	}
	if got := def.Config().LeapYear.Rule; got != "none" {
		t.Errorf("custom rule should serialize as none, got %q", got)
	}
	assertRoundTrip(t, def, []DateTimeParts{
		date(0, 0, 1), date(-1, 11, 31), date(3, 1, 29), date(8_000, 1, 29),
		date(-8_003, 5, 17), date(123_456, 11, 31),
	})
}

func TestLeapCustom_Aperiodic(t *testing.T) {
	cfg := gregorianLikeConfig()
	cfg.CustomLeap = &LeapCustom{
		ReferenceYear: 10,
		Check:         func(n int) bool { return floorMod(n, 3) == 0 || floorMod(n, 7) == 0 },
	}
	def := mustBuild(t, cfg)

	// Year arithmetic must match summing the years one by one.
	var days int64
	for y := 0; y < 3000; y++ {
		days += int64(def.DaysInYear(y))
	}
	secs, err := def.ToLinearSeconds(date(3000, 0, 1))
	if err != nil {
		t.Fatalf("ToLinearSeconds: %v", err)
	}
	if want := days * 86400; secs != want {
		t.Errorf("expected %d, got %d", want, secs)
	}

	assertRoundTrip(t, def, []DateTimeParts{
		date(10, 1, 29), date(-2_049, 6, 4), date(100_000, 11, 31), date(-70_001, 0, 1),
	})
}

func TestLeapCustom_Invalid(t *testing.T) {
	cfg := gregorianLikeConfig()
	cfg.CustomLeap = &LeapCustom{}
	_, err := BuildDefinition(cfg)
	assertConfigError(t, err)

	cfg.CustomLeap = &LeapCustom{Period: maxLeapPeriod + 1, Check: func(int) bool { return false }}
	_, err = BuildDefinition(cfg)
	assertConfigError(t, err)
}

// assertRoundTrip checks FromLinearSeconds(ToLinearSeconds(p)) == p.
func assertRoundTrip(t *testing.T, def *Definition, dates []DateTimeParts) {
	t.Helper()
	for _, p := range dates {
		secs, err := def.ToLinearSeconds(p)
		if err != nil {
			t.Errorf("ToLinearSeconds(%s): %v", p, err)
			continue
		}
		got, err := def.FromLinearSeconds(secs)
		if err != nil {
			t.Errorf("FromLinearSeconds(%d): %v", secs, err)
			continue
		}
		if got != p {
			t.Errorf("round trip of %s gave %s (seconds %d)", p, got, secs)
		}
	}
}
