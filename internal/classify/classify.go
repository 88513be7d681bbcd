// Package classify maps play-by-play action codes to the event categories the
// possession state machine reasons about.
package classify

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/pable/go-pbp-possessions/internal/model"
)

// Category is one semantic event class.
type Category uint16

const (
	MadeFieldGoal Category = 1 << iota
	MissedFieldGoal
	OffensiveRebound
	DefensiveRebound
	FreeThrow
	Steal
	TurnoverLike // turnovers, shot-clock violations, offensive fouls
	Neutral
	NeutralRestartEligible // inbound / out-of-bounds resumptions; always also Neutral
)

// Categories lists every category in display order.
var Categories = []Category{
	MadeFieldGoal, MissedFieldGoal, OffensiveRebound, DefensiveRebound,
	FreeThrow, Steal, TurnoverLike, Neutral, NeutralRestartEligible,
}

var categoryNames = map[Category]string{
	MadeFieldGoal:          "made_field_goal",
	MissedFieldGoal:        "missed_field_goal",
	OffensiveRebound:       "offensive_rebound",
	DefensiveRebound:       "defensive_rebound",
	FreeThrow:              "free_throw",
	Steal:                  "steal",
	TurnoverLike:           "turnover_like",
	Neutral:                "neutral",
	NeutralRestartEligible: "neutral_restart_eligible",
}

func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return "unknown"
}

// Set is a set of categories matched by one row.
type Set uint16

// Has reports whether c is in the set.
func (s Set) Has(c Category) bool { return s&Set(c) != 0 }

// HasAny reports whether any of cs is in the set.
func (s Set) HasAny(cs ...Category) bool {
	for _, c := range cs {
		if s.Has(c) {
			return true
		}
	}
	return false
}

func (s Set) String() string {
	var parts []string
	for _, c := range Categories {
		if s.Has(c) {
			parts = append(parts, c.String())
		}
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Table is a fixed code → categories mapping.
type Table struct {
	codes map[int]Set
}

// NewTable builds a table from per-category code lists. Restart-eligible codes
// are added to Neutral as well.
func NewTable(byCategory map[Category][]int) *Table {
	t := &Table{codes: make(map[int]Set)}
	for c, codes := range byCategory {
		for _, code := range codes {
			t.codes[code] |= Set(c)
			if c == NeutralRestartEligible {
				t.codes[code] |= Set(Neutral)
			}
		}
	}
	return t
}

// Lookup returns the categories a single code belongs to.
func (t *Table) Lookup(code int) Set { return t.codes[code] }

// Codes returns the sorted codes mapped to c.
func (t *Table) Codes(c Category) []int {
	var out []int
	for code, s := range t.codes {
		if s.Has(c) {
			out = append(out, code)
		}
	}
	sort.Ints(out)
	return out
}

// Fingerprint is a short stable digest of the code table. Tables that map the
// same codes to the same categories share a fingerprint.
func (t *Table) Fingerprint() string {
	h := sha256.New()
	for _, c := range Categories {
		fmt.Fprintf(h, "%s:%v;", c, t.Codes(c))
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Classify returns the union of categories across the action slots. An empty
// row, or one where no slot holds a recognised code, is Neutral.
func (t *Table) Classify(actions [model.ActionSlots]int) Set {
	var s Set
	for _, a := range actions {
		if a == model.NoAction {
			continue
		}
		s |= t.codes[a]
	}
	if s == 0 {
		s = Set(Neutral)
	}
	return s
}

func codeRange(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for c := lo; c <= hi; c++ {
		out = append(out, c)
	}
	return out
}

// Default returns the B.League master code table.
func Default() *Table {
	turnovers := []int{13, 17}
	turnovers = append(turnovers, codeRange(147, 161)...)
	turnovers = append(turnovers, 163)
	turnovers = append(turnovers, 34, 156) // shot clock; 156 doubles as a turnover kind
	turnovers = append(turnovers, 23)      // offensive foul

	neutral := codeRange(80, 90)
	neutral = append(neutral, codeRange(107, 118)...)
	neutral = append(neutral, codeRange(133, 144)...)

	return NewTable(map[Category][]int{
		MadeFieldGoal:          {1, 3, 4, 44},
		MissedFieldGoal:        {2, 5, 6, 45},
		OffensiveRebound:       {10, 18},
		DefensiveRebound:       {9, 19},
		FreeThrow:              {7, 8},
		Steal:                  {14},
		TurnoverLike:           turnovers,
		Neutral:                neutral,
		NeutralRestartEligible: codeRange(112, 118),
	})
}
