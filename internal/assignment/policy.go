package assignment

import (
	"cmp"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// RankKey names one ordering criterion.
type RankKey string

const (
	// RankPreferredFirst puts staff listed in Constraint.PreferredStaffIDs first.
	RankPreferredFirst RankKey = "preferred_first"
	// RankLeastAssigned puts staff with fewer current assignments first.
	RankLeastAssigned RankKey = "least_assigned"
	// RankID orders by identifier.
	RankID RankKey = "id"
)

var knownKeys = map[RankKey]struct{}{
	RankPreferredFirst: {},
	RankLeastAssigned:  {},
	RankID:             {},
}

// Policy is the ordered list of ranking keys applied to eligible staff.
// Identifier is always the final tie-break so output order is deterministic.
type Policy struct {
	Keys []RankKey `yaml:"ranking"`
}

// DefaultPolicy ranks by fewest current assignments, then identifier.
func DefaultPolicy() Policy {
	return Policy{Keys: []RankKey{RankLeastAssigned, RankID}}
}

// Validate rejects unknown or repeated keys.
func (p Policy) Validate() error {
	seen := make(map[RankKey]struct{}, len(p.Keys))
	for _, key := range p.Keys {
		if _, ok := knownKeys[key]; !ok {
			return fmt.Errorf("unknown ranking key %q", key)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("ranking key %q repeated", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// String renders the policy as a comma separated list.
func (p Policy) String() string {
	parts := make([]string, len(p.Keys))
	for i, key := range p.Keys {
		parts[i] = string(key)
	}
	return strings.Join(parts, ",")
}

// ParsePolicy reads a comma separated list of ranking keys.
// An empty string yields DefaultPolicy.
func ParsePolicy(raw string) (Policy, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultPolicy(), nil
	}
	var p Policy
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		p.Keys = append(p.Keys, RankKey(part))
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// LoadPolicy reads a YAML policy file of the form:
//
//	ranking: [preferred_first, least_assigned, id]
func LoadPolicy(path string) (Policy, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(content, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
	}
	if len(p.Keys) == 0 {
		return DefaultPolicy(), nil
	}
	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

func (p Policy) rank(eligible []Ranked, c Constraint) {
	keys := p.Keys
	if len(keys) == 0 {
		keys = DefaultPolicy().Keys
	}
	preferred := make(map[string]struct{}, len(c.PreferredStaffIDs))
	for _, id := range c.PreferredStaffIDs {
		preferred[id] = struct{}{}
	}
	isPreferred := func(r Ranked) bool {
		_, ok := preferred[r.Staff.ID]
		return ok
	}

	for i := range eligible {
		eligible[i].Score = score(eligible[i], isPreferred(eligible[i]))
	}

	slices.SortStableFunc(eligible, func(a, b Ranked) int {
		for _, key := range keys {
			var diff int
			switch key {
			case RankPreferredFirst:
				diff = cmpBool(isPreferred(b), isPreferred(a))
			case RankLeastAssigned:
				diff = cmp.Compare(a.Staff.CurrentAssignments, b.Staff.CurrentAssignments)
			case RankID:
				diff = cmp.Compare(a.Staff.ID, b.Staff.ID)
			}
			if diff != 0 {
				return diff
			}
		}
		return cmp.Compare(a.Staff.ID, b.Staff.ID)
	})

	for i := range eligible {
		eligible[i].Rank = i + 1
	}
}

// score is informational: 1 for an idle staff member, shrinking with workload,
// plus 1 when the caller asked for this person.
func score(r Ranked, preferred bool) float64 {
	s := 1.0 / float64(1+max(r.Staff.CurrentAssignments, 0))
	if preferred {
		s++
	}
	return s
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}
