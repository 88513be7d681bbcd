package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// tableFile is the YAML layout of a code-table override. Categories left out
// keep their default codes.
type tableFile struct {
	MadeFieldGoal          []int `yaml:"made_field_goal"`
	MissedFieldGoal        []int `yaml:"missed_field_goal"`
	OffensiveRebound       []int `yaml:"offensive_rebound"`
	DefensiveRebound       []int `yaml:"defensive_rebound"`
	FreeThrow              []int `yaml:"free_throw"`
	Steal                  []int `yaml:"steal"`
	TurnoverLike           []int `yaml:"turnover_like"`
	Neutral                []int `yaml:"neutral"`
	NeutralRestartEligible []int `yaml:"neutral_restart_eligible"`
}

// Load reads a YAML code table from path. An empty path returns Default.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read code table: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML code table, falling back to the default codes for every
// category the document does not mention.
func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse code table: %w", err)
	}

	def := Default()
	pick := func(c Category, codes []int) []int {
		if codes == nil {
			return def.Codes(c)
		}
		return codes
	}

	byCategory := map[Category][]int{
		MadeFieldGoal:          pick(MadeFieldGoal, f.MadeFieldGoal),
		MissedFieldGoal:        pick(MissedFieldGoal, f.MissedFieldGoal),
		OffensiveRebound:       pick(OffensiveRebound, f.OffensiveRebound),
		DefensiveRebound:       pick(DefensiveRebound, f.DefensiveRebound),
		FreeThrow:              pick(FreeThrow, f.FreeThrow),
		Steal:                  pick(Steal, f.Steal),
		TurnoverLike:           pick(TurnoverLike, f.TurnoverLike),
		NeutralRestartEligible: pick(NeutralRestartEligible, f.NeutralRestartEligible),
	}
	// Default Neutral includes the restart codes; keep only the plain ones so an
	// overridden restart list does not leave stale entries behind.
	if f.Neutral != nil {
		byCategory[Neutral] = f.Neutral
	} else {
		restart := make(map[int]bool)
		for _, c := range def.Codes(NeutralRestartEligible) {
			restart[c] = true
		}
		var plain []int
		for _, c := range def.Codes(Neutral) {
			if !restart[c] {
				plain = append(plain, c)
			}
		}
		byCategory[Neutral] = plain
	}

	for c, codes := range byCategory {
		for _, code := range codes {
			if code <= 0 {
				return nil, fmt.Errorf("code table: %s: invalid code %d", c, code)
			}
		}
	}
	return NewTable(byCategory), nil
}
