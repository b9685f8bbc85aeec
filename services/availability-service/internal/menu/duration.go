// Package menu turns a customer's menu selection into a booking length.
package menu

// Visit count labels offered on the booking form.
const (
	VisitFirst  = "1回目〈30分〉"
	VisitRepeat = "2回目以降〈0分〉"
)

// Item is a bookable menu or option and the minutes it adds to a booking.
type Item struct {
	Name    string `json:"name" yaml:"name" validate:"required"`
	Minutes int    `json:"minutes" yaml:"minutes" validate:"gte=0"`
}

// VisitAdjust holds the minutes added for a first visit and for a repeat visit.
type VisitAdjust struct {
	First  int `json:"first" yaml:"first" validate:"gte=0"`
	Repeat int `json:"repeat" yaml:"repeat" validate:"gte=0"`
}

// Config is a store's menu catalogue and visit adjustments.
type Config struct {
	Menus       []Item      `json:"menus" yaml:"menus" validate:"dive"`
	Options     []Item      `json:"options" yaml:"options" validate:"dive"`
	VisitAdjust VisitAdjust `json:"visitAdjust" yaml:"visitAdjust"`
}

// Selection is what the customer picked on the form.
type Selection struct {
	VisitCount string   `json:"visitCount"`
	Course     string   `json:"course"`
	Menus      []string `json:"menus"`
	Options    []string `json:"options"`
}

// ComputeTotalMinutes sums the visit adjustment and the minutes of every
// selected menu and option. Any visit label other than VisitFirst, including
// an empty one, counts as a repeat visit. Names missing from cfg add nothing,
// and a name selected more than once counts once.
func ComputeTotalMinutes(visitCount string, menus, options []string, cfg Config) int {
	total := cfg.VisitAdjust.Repeat
	if visitCount == VisitFirst {
		total = cfg.VisitAdjust.First
	}
	total += sumMinutes(menus, cfg.Menus)
	total += sumMinutes(options, cfg.Options)
	return total
}

// TotalMinutes is ComputeTotalMinutes for a Selection.
func (s Selection) TotalMinutes(cfg Config) int {
	return ComputeTotalMinutes(s.VisitCount, s.Menus, s.Options, cfg)
}

// UnmatchedNames lists selected names that cfg does not know about, menus
// first. They contribute zero minutes to the total.
func UnmatchedNames(menus, options []string, cfg Config) []string {
	var out []string
	out = appendUnknown(out, menus, cfg.Menus)
	out = appendUnknown(out, options, cfg.Options)
	return out
}

func sumMinutes(names []string, items []Item) int {
	total := 0
	for _, name := range distinct(names) {
		if m, ok := lookup(name, items); ok {
			total += m
		}
	}
	return total
}

func appendUnknown(out, names []string, items []Item) []string {
	for _, name := range distinct(names) {
		if _, ok := lookup(name, items); !ok {
			out = append(out, name)
		}
	}
	return out
}

// distinct drops repeated names, keeping first occurrences in order.
func distinct(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func lookup(name string, items []Item) (int, bool) {
	for _, it := range items {
		if it.Name == name {
			return it.Minutes, true
		}
	}
	return 0, false
}
