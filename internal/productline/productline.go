// Package productline holds the insurance categories known to the service and
// the per-table default applied when a caller does not name one.
package productline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	Casco     = "casco"
	Health    = "health"
	Property  = "property"
	Travel    = "travel"
	Liability = "liability"
	MTPL      = "mtpl"
)

// Tables that carry a product line column.
const (
	TableJobs       = "jobs"
	TableOffers     = "offers"
	TableShareLinks = "share_links"
)

var ErrUnknown = errors.New("invalid_product_line")

var known = map[string]struct{}{
	Casco:     {},
	Health:    {},
	Property:  {},
	Travel:    {},
	Liability: {},
	MTPL:      {},
}

var tables = map[string]struct{}{
	TableJobs:       {},
	TableOffers:     {},
	TableShareLinks: {},
}

// Normalize lowercases and trims a product line value.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Valid reports whether the normalized line is a known product line.
func Valid(line string) bool {
	_, ok := known[Normalize(line)]
	return ok
}

// Known returns the known product lines in lexical order.
func Known() []string {
	out := make([]string, 0, len(known))
	for line := range known {
		out = append(out, line)
	}
	sort.Strings(out)
	return out
}

// Defaults maps a table name to the product line used when none is supplied.
type Defaults map[string]string

// DefaultTable is the built-in defaults table.
func DefaultTable() Defaults {
	return Defaults{
		TableJobs:       Casco,
		TableOffers:     Casco,
		TableShareLinks: Casco,
	}
}

// For returns the default product line for table, falling back to casco.
func (d Defaults) For(table string) string {
	if line, ok := d[table]; ok && line != "" {
		return line
	}
	return Casco
}

func (d Defaults) clone() Defaults {
	out := make(Defaults, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// ParseDefaults parses overrides written as "jobs=casco,offers=health".
func ParseDefaults(raw string) (Defaults, error) {
	out := Defaults{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		table, line, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("product line default %q: expected table=line", pair)
		}
		out[strings.TrimSpace(table)] = Normalize(line)
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func (d Defaults) validate() error {
	for table, line := range d {
		if _, ok := tables[table]; !ok {
			return fmt.Errorf("product line default for unknown table %q", table)
		}
		if !Valid(line) {
			return fmt.Errorf("%w: %q for table %s", ErrUnknown, line, table)
		}
	}
	return nil
}

// merge returns d overlaid with every entry of overrides.
func (d Defaults) merge(overrides map[string]string) Defaults {
	out := d.clone()
	for table, line := range overrides {
		out[strings.ToLower(strings.TrimSpace(table))] = Normalize(line)
	}
	return out
}
