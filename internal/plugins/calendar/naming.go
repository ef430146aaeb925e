package calendar

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// YearNaming assigns names to years. The set of rules is closed:
// NamingDefault, NamingRepeat and NamingRandom.
type YearNaming interface {
	name(year int) string
	yearNaming()
}

// NamingDefault uses each name once, starting at Start. Years outside the
// list have no name.
type NamingDefault struct {
	Names []string
	Start int
}

func (n NamingDefault) name(year int) string {
	i := year - n.Start
	if i < 0 || i >= len(n.Names) {
		return ""
	}
	return n.Names[i]
}

func (NamingDefault) yearNaming() {}

// NamingRepeat cycles through the names forever in both directions from Start.
type NamingRepeat struct {
	Names []string
	Start int
}

func (n NamingRepeat) name(year int) string {
	if len(n.Names) == 0 {
		return ""
	}
	return n.Names[floorMod(year-n.Start, len(n.Names))]
}

func (NamingRepeat) yearNaming() {}

// NamingRandom picks a name per year from a hash of the year number, so the
// same year always gets the same name.
type NamingRandom struct {
	Names []string
}

func (n NamingRandom) name(year int) string {
	if len(n.Names) == 0 {
		return ""
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(year)))
	h := fnv.New32a()
	h.Write(buf[:])
	return n.Names[h.Sum32()%uint32(len(n.Names))]
}

func (NamingRandom) yearNaming() {}

func yearNamingFromConfig(c YearNamingConfig) (YearNaming, error) {
	names := append([]string(nil), c.Names...)
	switch c.Rule {
	case "", "default", "once":
		return NamingDefault{Names: names, Start: c.Start}, nil
	case "repeat":
		return NamingRepeat{Names: names, Start: c.Start}, nil
	case "random":
		return NamingRandom{Names: names}, nil
	}
	return nil, configErrorf("year.naming.rule", "unknown rule %q", c.Rule)
}

func yearNamingConfig(n YearNaming) YearNamingConfig {
	switch n := n.(type) {
	case NamingDefault:
		return YearNamingConfig{Rule: "default", Names: n.Names, Start: n.Start}
	case NamingRepeat:
		return YearNamingConfig{Rule: "repeat", Names: n.Names, Start: n.Start}
	case NamingRandom:
		return YearNamingConfig{Rule: "random", Names: n.Names}
	default:
		panic(fmt.Sprintf("calendar: unhandled year naming %T", n))
	}
}

// YearName returns the name of year, or "" when the year is unnamed.
func (d *Definition) YearName(year int) string {
	return d.naming.name(year)
}

// FormatYear renders a year with the configured prefix and postfix.
func (d *Definition) FormatYear(year int) string {
	parts := make([]string, 0, 3)
	if p := strings.TrimSpace(d.cfg.Year.Prefix); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, strconv.Itoa(year))
	if p := strings.TrimSpace(d.cfg.Year.Postfix); p != "" {
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}
