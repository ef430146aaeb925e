package calendar

import (
	"encoding/json"
	"fmt"
)

// CurrentSchemaVersion is the version of records written by this package.
//
//	1: general settings held a single playersAddNotes flag
//	2: general settings gained the permission matrix (no reorderNotes, no pf2eSync)
//	3: current Config
const CurrentSchemaVersion = 3

// LegacyPermissionMatrix is a permission matrix as older releases stored it.
type LegacyPermissionMatrix struct {
	Player              bool     `json:"player"`
	TrustedPlayer       bool     `json:"trustedPlayer"`
	AssistantGameMaster bool     `json:"assistantGameMaster"`
	Users               []string `json:"users,omitempty"`
}

func (m LegacyPermissionMatrix) current() PermissionMatrix {
	return PermissionMatrix{
		Player:              m.Player,
		TrustedPlayer:       m.TrustedPlayer,
		AssistantGameMaster: m.AssistantGameMaster,
		Users:               append([]string(nil), m.Users...),
	}
}

// LegacyGeneralV1 is the version 1 general settings record.
type LegacyGeneralV1 struct {
	GameWorldTimeIntegration string `json:"gameWorldTimeIntegration"`
	ShowClock                bool   `json:"showClock"`
	PlayersAddNotes          bool   `json:"playersAddNotes"`
}

// LegacyGeneralV2 is the version 2 general settings record. Some version 2
// records already carry pf2eSync or reorderNotes; both are optional.
type LegacyGeneralV2 struct {
	GameWorldTimeIntegration string `json:"gameWorldTimeIntegration"`
	ShowClock                bool   `json:"showClock"`
	PF2ESync                 *bool  `json:"pf2eSync,omitempty"`
	Permissions              struct {
		ViewCalendar   LegacyPermissionMatrix  `json:"viewCalendar"`
		AddNotes       LegacyPermissionMatrix  `json:"addNotes"`
		ReorderNotes   *LegacyPermissionMatrix `json:"reorderNotes,omitempty"`
		ChangeDateTime LegacyPermissionMatrix  `json:"changeDateTime"`
	} `json:"permissions"`
}

// LegacyYear is the year record of versions 1 and 2. Fields added over time
// are optional.
type LegacyYear struct {
	NumericRepresentation int      `json:"numericRepresentation"`
	Prefix                string   `json:"prefix"`
	Postfix               string   `json:"postfix"`
	ShowWeekdayHeadings   *bool    `json:"showWeekdayHeadings,omitempty"`
	FirstWeekday          *int     `json:"firstWeekday,omitempty"`
	YearZero              *int     `json:"yearZero,omitempty"`
	YearNames             []string `json:"yearNames,omitempty"`
	YearNamingRule        *string  `json:"yearNamingRule,omitempty"`
	YearNamesStart        *int     `json:"yearNamesStart,omitempty"`
}

// LegacyRecord is a stored calendar of any schema version. Calendar holds
// the parts that never changed shape; for versions 1 and 2 its General and
// Year are ignored in favor of the versioned records.
type LegacyRecord struct {
	Version   int
	Calendar  Config
	GeneralV1 LegacyGeneralV1
	GeneralV2 LegacyGeneralV2
	Year      LegacyYear
}

type legacyEnvelope struct {
	SchemaVersion   int             `json:"schemaVersion"`
	Calendar        Config          `json:"calendar"`
	GeneralSettings json.RawMessage `json:"generalSettings"`
	YearSettings    json.RawMessage `json:"yearSettings"`
}

// DecodeLegacy parses a stored record and determines its schema version.
// Records without a schemaVersion are classified by their general settings:
// none means current, a permissions object means version 2, otherwise 1.
func DecodeLegacy(data []byte) (LegacyRecord, error) {
	var env legacyEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return LegacyRecord{}, fmt.Errorf("decode legacy record: %w", err)
	}
	rec := LegacyRecord{Version: env.SchemaVersion, Calendar: env.Calendar}
	if rec.Version == 0 {
		rec.Version = detectLegacyVersion(env.GeneralSettings)
	}
	if rec.Version == CurrentSchemaVersion {
		return rec, nil
	}

	var err error
	switch rec.Version {
	case 1:
		err = unmarshalOptional(env.GeneralSettings, &rec.GeneralV1)
	case 2:
		err = unmarshalOptional(env.GeneralSettings, &rec.GeneralV2)
	default:
		return LegacyRecord{}, configErrorf("schemaVersion", "unsupported version %d", rec.Version)
	}
	if err != nil {
		return LegacyRecord{}, fmt.Errorf("decode legacy general settings: %w", err)
	}
	if err := unmarshalOptional(env.YearSettings, &rec.Year); err != nil {
		return LegacyRecord{}, fmt.Errorf("decode legacy year settings: %w", err)
	}
	return rec, nil
}

func detectLegacyVersion(general json.RawMessage) int {
	if len(general) == 0 || string(general) == "null" {
		return CurrentSchemaVersion
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(general, &keys); err != nil {
		return 1
	}
	if _, ok := keys["permissions"]; ok {
		return 2
	}
	return 1
}

func unmarshalOptional(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// MigrateLegacy upgrades rec to the current Config. The bool reports whether
// any upgrade happened. The result is validated; an invalid calendar yields a
// ConfigError.
func MigrateLegacy(rec LegacyRecord) (Config, bool, error) {
	cfg := cloneConfig(rec.Calendar)
	migrated := true
	switch rec.Version {
	case CurrentSchemaVersion:
		migrated = false
	case 2:
		cfg.General = generalFromV2(rec.GeneralV2)
		cfg.Year = yearFromLegacy(rec.Year)
	case 1:
		cfg.General = generalFromV1(rec.GeneralV1)
		cfg.Year = yearFromLegacy(rec.Year)
	default:
		return Config{}, false, configErrorf("schemaVersion", "unsupported version %d", rec.Version)
	}
	def, err := BuildDefinition(cfg)
	if err != nil {
		return Config{}, false, err
	}
	return def.Config(), migrated, nil
}

func generalFromV1(v LegacyGeneralV1) GeneralSettings {
	g := DefaultGeneralSettings()
	g.GameWorldTimeIntegration = orDefault(v.GameWorldTimeIntegration, g.GameWorldTimeIntegration)
	g.ShowClock = v.ShowClock
	g.Permissions.AddNotes = PermissionMatrix{
		Player:              v.PlayersAddNotes,
		TrustedPlayer:       v.PlayersAddNotes,
		AssistantGameMaster: v.PlayersAddNotes,
	}
	return g
}

func generalFromV2(v LegacyGeneralV2) GeneralSettings {
	g := DefaultGeneralSettings()
	g.GameWorldTimeIntegration = orDefault(v.GameWorldTimeIntegration, g.GameWorldTimeIntegration)
	g.ShowClock = v.ShowClock
	if v.PF2ESync != nil {
		g.PF2ESync = *v.PF2ESync
	}
	p := v.Permissions
	g.Permissions.ViewCalendar = p.ViewCalendar.current()
	g.Permissions.AddNotes = p.AddNotes.current()
	g.Permissions.ChangeDateTime = p.ChangeDateTime.current()
	g.Permissions.ReorderNotes = PermissionMatrix{}
	if p.ReorderNotes != nil {
		g.Permissions.ReorderNotes = p.ReorderNotes.current()
	}
	return g
}

func yearFromLegacy(v LegacyYear) YearConfig {
	y := YearConfig{
		Current:             v.NumericRepresentation,
		Prefix:              v.Prefix,
		Postfix:             v.Postfix,
		ShowWeekdayHeadings: true,
		Naming:              YearNamingConfig{Rule: "default"},
	}
	if v.ShowWeekdayHeadings != nil {
		y.ShowWeekdayHeadings = *v.ShowWeekdayHeadings
	}
	if v.FirstWeekday != nil {
		y.FirstWeekday = *v.FirstWeekday
	}
	if v.YearZero != nil {
		y.YearZero = *v.YearZero
	}
	y.Naming.Names = append([]string(nil), v.YearNames...)
	if v.YearNamingRule != nil {
		y.Naming.Rule = *v.YearNamingRule
	}
	if v.YearNamesStart != nil {
		y.Naming.Start = *v.YearNamesStart
	}
	return y
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
