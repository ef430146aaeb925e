package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/keyxmakerx/chronicle-calendar/internal/plugins/calendar"
)

// loadConfig reads the --calendar file. YAML files hold a calendar.Config
// directly; JSON files may be any format DetectAndParse understands.
func loadConfig(cmd *cobra.Command) (calendar.Config, *calendar.ImportResult, error) {
	path, _ := cmd.Flags().GetString("calendar")
	data, err := os.ReadFile(path)
	if err != nil {
		return calendar.Config{}, nil, fmt.Errorf("reading calendar file: %w", err)
	}
	return parseConfig(path, data)
}

func parseConfig(path string, data []byte) (calendar.Config, *calendar.ImportResult, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var cfg calendar.Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return cfg, nil, nil
	}

	res, err := calendar.DetectAndParse(data)
	if err == nil {
		return res.Config, res, nil
	}
	// A bare Config JSON, as stored by the server.
	var cfg calendar.Config
	if jerr := json.Unmarshal(data, &cfg); jerr != nil || len(cfg.Months) == 0 {
		return cfg, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil, nil
}

// loadEngine builds an engine from the --calendar file.
func loadEngine(cmd *cobra.Command) (*calendar.Engine, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return calendar.NewEngine(cfg)
}

// printOutput writes v in the --output format.
func printOutput(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("output")
	return write(cmd.OutOrStdout(), format, v)
}

func write(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// parseDate parses YEAR-MONTH-DAY[THH:MM:SS] with a 1-based month. Years may
// be negative.
func parseDate(s string) (calendar.DateTimeParts, error) {
	var p calendar.DateTimeParts
	datePart, timePart, hasTime := strings.Cut(s, "T")

	neg := strings.HasPrefix(datePart, "-")
	fields := strings.Split(strings.TrimPrefix(datePart, "-"), "-")
	if len(fields) != 3 {
		return p, fmt.Errorf("date %q: want YEAR-MONTH-DAY", s)
	}
	var month int
	if _, err := fmt.Sscanf(strings.Join(fields, " "), "%d %d %d", &p.Year, &month, &p.Day); err != nil {
		return p, fmt.Errorf("date %q: %w", s, err)
	}
	if neg {
		p.Year = -p.Year
	}
	p.Month = month - 1

	if hasTime {
		if _, err := fmt.Sscanf(timePart, "%d:%d:%d", &p.Hour, &p.Minute, &p.Second); err != nil {
			return p, fmt.Errorf("time %q: want HH:MM:SS", timePart)
		}
	}
	return p, nil
}
