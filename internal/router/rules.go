// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// ============================================================================
// RULE TABLE
// ============================================================================

//go:embed default_rules.toml
var defaultRulesTOML []byte

// ErrInvalidRules is wrapped by every rule validation failure.
var ErrInvalidRules = errors.New("invalid classifier rules")

// RuleSet is the ordered rule table. The first group with any matching rule
// decides the mode.
type RuleSet struct {
	Groups []RuleGroup `toml:"group"`
}

// RuleGroup is the set of rules for one mode. It matches when any phrase is
// contained in the normalised message or any pattern matches it.
type RuleGroup struct {
	Mode     Mode     `toml:"mode"`
	Phrases  []string `toml:"phrases"`
	Patterns []string `toml:"patterns"`
}

// DefaultRules returns the built-in rule table.
func DefaultRules() RuleSet {
	rs, err := ParseRules(defaultRulesTOML)
	if err != nil {
		panic(fmt.Sprintf("router: embedded rules: %v", err))
	}
	return rs
}

// DefaultRulesTOML returns the built-in rule table as TOML, for writing a
// starter rules file.
func DefaultRulesTOML() []byte {
	out := make([]byte, len(defaultRulesTOML))
	copy(out, defaultRulesTOML)
	return out
}

// ParseRules decodes and validates a TOML rule table. Unknown keys are
// rejected so a typo cannot silently disable a group.
func ParseRules(data []byte) (RuleSet, error) {
	var rs RuleSet
	md, err := toml.Decode(string(data), &rs)
	if err != nil {
		return RuleSet{}, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return RuleSet{}, fmt.Errorf("%w: unknown keys: %s", ErrInvalidRules, strings.Join(keys, ", "))
	}
	if err := rs.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// LoadRules reads a rule table from a TOML file.
func LoadRules(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	rs, err := ParseRules(data)
	if err != nil {
		return RuleSet{}, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// Validate checks the table is usable. Each group needs a known non-chat
// mode, at least one rule and valid patterns, and groups must keep the
// order roadmap, code, explain with no mode repeated.
func (rs RuleSet) Validate() error {
	var problems []string
	last := -1
	seen := make(map[Mode]bool)

	for i, g := range rs.Groups {
		where := fmt.Sprintf("group %d (%s)", i+1, g.Mode)
		switch {
		case !g.Mode.Valid():
			problems = append(problems, fmt.Sprintf("%s: unknown mode", where))
			continue
		case g.Mode == DefaultMode:
			problems = append(problems, fmt.Sprintf("%s: %s is the default and takes no rules", where, DefaultMode))
			continue
		case seen[g.Mode]:
			problems = append(problems, fmt.Sprintf("%s: duplicate group", where))
			continue
		}
		seen[g.Mode] = true

		if p := g.Mode.priority(); p < last {
			problems = append(problems, fmt.Sprintf("%s: out of order (want roadmap, code, explain)", where))
		} else {
			last = p
		}

		rules := 0
		for _, ph := range g.Phrases {
			if strings.TrimSpace(ph) == "" {
				problems = append(problems, fmt.Sprintf("%s: empty phrase", where))
				continue
			}
			rules++
		}
		for _, pat := range g.Patterns {
			if _, err := regexp.Compile(pat); err != nil {
				problems = append(problems, fmt.Sprintf("%s: pattern %q: %v", where, pat, err))
				continue
			}
			rules++
		}
		if rules == 0 {
			problems = append(problems, fmt.Sprintf("%s: no rules", where))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRules, strings.Join(problems, "; "))
	}
	return nil
}

// ============================================================================
// COMPILED FORM
// ============================================================================

type compiledGroup struct {
	mode     Mode
	phrases  []string
	patterns []*regexp.Regexp
}

type compiledRules struct {
	source RuleSet
	groups []compiledGroup
}

func compile(rs RuleSet) (*compiledRules, error) {
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	out := &compiledRules{source: rs, groups: make([]compiledGroup, 0, len(rs.Groups))}
	for _, g := range rs.Groups {
		cg := compiledGroup{mode: g.Mode}
		for _, ph := range g.Phrases {
			cg.phrases = append(cg.phrases, Normalize(ph))
		}
		for _, pat := range g.Patterns {
			cg.patterns = append(cg.patterns, regexp.MustCompile("(?i)"+pat))
		}
		out.groups = append(out.groups, cg)
	}
	return out, nil
}
