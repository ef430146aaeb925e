// export.go provides JSON export of calendar configurations in the native
// format. The export is a superset of what the other importers produce and
// round-trips through DetectAndParse.
package calendar

// ExportFormatVersion identifies the native export format.
const ExportFormatVersion = "chronicle-calendar-v2"

// ChronicleExport is the top-level JSON envelope for calendar export.
type ChronicleExport struct {
	Format   string `json:"format"`
	Version  int    `json:"version"` // schema version of Calendar
	Calendar Config `json:"calendar"`
	// Current is the calendar's in-game date at export time.
	Current *DateTimeParts `json:"current,omitempty"`
	// CurrentSeconds is Current as linear time.
	CurrentSeconds *int64 `json:"current_seconds,omitempty"`
}

// BuildExport creates a ChronicleExport from a definition and, optionally,
// the calendar's current linear time.
func BuildExport(def *Definition, now *int64) (*ChronicleExport, error) {
	export := &ChronicleExport{
		Format:   ExportFormatVersion,
		Version:  CurrentSchemaVersion,
		Calendar: def.Config(),
	}
	if now != nil {
		cur, err := def.FromLinearSeconds(*now)
		if err != nil {
			return nil, err
		}
		secs := *now
		export.Current = &cur
		export.CurrentSeconds = &secs
	}
	return export, nil
}
