package calendar

import "testing"

func TestYearName_Default(t *testing.T) {
	cfg := twoMonthConfig()
	cfg.Year.Naming = YearNamingConfig{Rule: "default", Names: []string{"Rat", "Ox"}, Start: 10}
	def := mustBuild(t, cfg)

	for y, want := range map[int]string{9: "", 10: "Rat", 11: "Ox", 12: ""} {
		if got := def.YearName(y); got != want {
			t.Errorf("YearName(%d) = %q, want %q", y, got, want)
		}
	}
}

func TestYearName_Repeat(t *testing.T) {
	cfg := twoMonthConfig()
	cfg.Year.Naming = YearNamingConfig{Rule: "repeat", Names: []string{"Rat", "Ox", "Tiger"}, Start: 10}
	def := mustBuild(t, cfg)

	for y, want := range map[int]string{10: "Rat", 12: "Tiger", 13: "Rat", 9: "Tiger", -2: "Rat"} {
		if got := def.YearName(y); got != want {
			t.Errorf("YearName(%d) = %q, want %q", y, got, want)
		}
	}
}

func TestYearName_RandomIsStable(t *testing.T) {
	cfg := twoMonthConfig()
	names := []string{"Rat", "Ox", "Tiger", "Rabbit"}
	cfg.Year.Naming = YearNamingConfig{Rule: "random", Names: names}
	a := mustBuild(t, cfg)
	b := mustBuild(t, cfg)

	seen := map[string]bool{}
	for y := -50; y < 50; y++ {
		got := a.YearName(y)
		if got != b.YearName(y) {
			t.Fatalf("year %d named differently by two definitions", y)
		}
		seen[got] = true
	}
	for n := range seen {
		found := false
		for _, want := range names {
			found = found || n == want
		}
		if !found {
			t.Errorf("unexpected name %q", n)
		}
	}
	if len(seen) < 2 {
		t.Errorf("expected several names over 100 years, got %v", seen)
	}
}

func TestYearName_EmptyRuleIsDefault(t *testing.T) {
	def := mustBuild(t, twoMonthConfig())
	if got := def.Config().Year.Naming.Rule; got != "default" {
		t.Errorf("expected default rule, got %q", got)
	}
	if got := def.YearName(1); got != "" {
		t.Errorf("expected no name, got %q", got)
	}
}

func TestFormatYear(t *testing.T) {
	cfg := twoMonthConfig()
	cfg.Year.Prefix = "Year "
	cfg.Year.Postfix = " DR"
	def := mustBuild(t, cfg)

	if got := def.FormatYear(1492); got != "Year 1492 DR" {
		t.Errorf("unexpected format %q", got)
	}

	def = mustBuild(t, twoMonthConfig())
	if got := def.FormatYear(-7); got != "-7" {
		t.Errorf("unexpected format %q", got)
	}
}
