// Package database provides connection setup for MariaDB and Redis.
// This file validates migration SQL files to catch schema mismatches early.
package database

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"

	"github.com/keyxmakerx/chronicle-calendar/internal/plugins/calendar"
)

// validRepeatRules must match the ENUM values on calendar_notes.repeat_rule
// and the calendar.Repeat constants.
var validRepeatRules = map[string]bool{
	string(calendar.RepeatNone):    true,
	string(calendar.RepeatWeekly):  true,
	string(calendar.RepeatMonthly): true,
	string(calendar.RepeatYearly):  true,
}

// migrationsDir returns the absolute path to db/migrations/ from the project root.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	// thisFile is internal/database/migrate_test.go, project root is two dirs up.
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	dir := filepath.Join(projectRoot, "db", "migrations")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("migrations directory not found at %s: %v", dir, err)
	}
	return dir
}

func upFiles(t *testing.T) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(migrationsDir(t), "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no migration files found")
	}
	return files
}

// TestMigrations_RepeatRuleEnum checks that the repeat_rule ENUM lists
// exactly the recurrence values the calendar engine understands, so a stored
// note never fails ParseRepeat and a valid note never hits
// "Data truncated for column 'repeat_rule'" (Error 1265).
func TestMigrations_RepeatRuleEnum(t *testing.T) {
	enumPattern := regexp.MustCompile(`repeat_rule\s+ENUM\(([^)]*)\)`)
	valuePattern := regexp.MustCompile(`'([^']+)'`)

	found := false
	for _, f := range upFiles(t) {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("reading %s: %v", f, err)
		}
		for _, m := range enumPattern.FindAllStringSubmatch(string(data), -1) {
			found = true
			seen := map[string]bool{}
			for _, v := range valuePattern.FindAllStringSubmatch(m[1], -1) {
				if !validRepeatRules[v[1]] {
					t.Errorf("%s: repeat_rule value %q is not a calendar repeat", filepath.Base(f), v[1])
				}
				seen[v[1]] = true
			}
			for v := range validRepeatRules {
				if !seen[v] {
					t.Errorf("%s: repeat_rule ENUM is missing %q", filepath.Base(f), v)
				}
			}
		}
	}
	if !found {
		t.Error("no repeat_rule ENUM found in migrations")
	}
}

// TestMigrations_NoteColumns checks that the columns the note repository
// reads and writes exist in the schema.
func TestMigrations_NoteColumns(t *testing.T) {
	var schema strings.Builder
	for _, f := range upFiles(t) {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("reading %s: %v", f, err)
		}
		schema.Write(data)
	}
	sql := schema.String()

	for _, col := range []string{
		"id", "calendar_id", "author", "title", "content",
		"anchor", "end_date", "repeat_rule", "all_day", "categories",
		"player_visible", "sort_order", "remind_users", "created_at", "updated_at",
	} {
		pattern := regexp.MustCompile(`(?m)^\s*` + col + `\s+[A-Z]`)
		if !pattern.MatchString(sql) {
			t.Errorf("calendar_notes column %q not found in migrations", col)
		}
	}
}

// TestMigrations_DownForEveryUp checks that every migration can be rolled back.
func TestMigrations_DownForEveryUp(t *testing.T) {
	for _, up := range upFiles(t) {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, err := os.Stat(down); err != nil {
			t.Errorf("%s has no matching down migration", filepath.Base(up))
		}
	}
}
