package station

import (
	"fmt"
	"strings"
)

// Station is a preparation endpoint that receives routed order lines.
type Station string

const (
	Kitchen Station = "kitchen"
	Bar     Station = "bar"
)

// Router classifies product category tags into stations through an
// enumerated mapping table. Categories are matched case-insensitively after
// trimming; anything not in the table goes to the Kitchen. Classification
// happens once, when lines are posted at approval time.
type Router struct {
	mapping map[string]Station
}

// DefaultMapping covers the bar-side vocabulary the menu cards use out of
// the box. Deployments extend it via the STATION_MAP setting.
func DefaultMapping() map[string]Station {
	return map[string]Station{
		"bar":      Bar,
		"beverage": Bar,
		"drink":    Bar,
		"içecek":   Bar,
		"icecek":   Bar,
	}
}

// ParseMapping parses "category=station" pairs separated by commas, e.g.
// "smoothie=bar,dessert=kitchen". Parsed entries are merged over the
// defaults so a deployment only lists its additions and overrides.
func ParseMapping(spec string) (map[string]Station, error) {
	mapping := DefaultMapping()
	if strings.TrimSpace(spec) == "" {
		return mapping, nil
	}
	for _, pair := range strings.Split(spec, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid station mapping entry %q", pair)
		}
		category := normalize(parts[0])
		target := Station(normalize(parts[1]))
		if target != Kitchen && target != Bar {
			return nil, fmt.Errorf("unknown station %q in mapping entry %q", parts[1], pair)
		}
		if category == "" {
			return nil, fmt.Errorf("empty category in mapping entry %q", pair)
		}
		mapping[category] = target
	}
	return mapping, nil
}

func NewRouter(mapping map[string]Station) *Router {
	normalized := make(map[string]Station, len(mapping))
	for category, target := range mapping {
		normalized[normalize(category)] = target
	}
	return &Router{mapping: normalized}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Resolve returns the station for a category tag, defaulting to Kitchen.
func (r *Router) Resolve(category string) Station {
	if s, ok := r.mapping[normalize(category)]; ok {
		return s
	}
	return Kitchen
}

// Item is one routed order line as a station screen displays it.
type Item struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
	Note     string `json:"note,omitempty"`
}

// Payload is the fan-out unit delivered to a single station.
type Payload struct {
	Table string `json:"table"`
	Items []Item `json:"items"`
}

// Line is the router's view of a newly posted ledger line.
type Line struct {
	Category string
	Product  string
	Quantity int
	Note     string
}

// Group buckets lines by resolved station and returns one payload per
// station that received at least one line.
func (r *Router) Group(tableLabel string, lines []Line) map[Station]Payload {
	groups := make(map[Station]Payload)
	for _, line := range lines {
		target := r.Resolve(line.Category)
		payload, ok := groups[target]
		if !ok {
			payload = Payload{Table: tableLabel}
		}
		payload.Items = append(payload.Items, Item{
			Product:  line.Product,
			Quantity: line.Quantity,
			Note:     line.Note,
		})
		groups[target] = payload
	}
	return groups
}
