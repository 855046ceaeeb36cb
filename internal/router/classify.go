// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/text/unicode/norm"
)

// ============================================================================
// CLASSIFIER
// ============================================================================

// Classifier maps message text to a Mode. It is safe for concurrent use and
// its rules can be swapped while other goroutines classify.
type Classifier struct {
	rules atomic.Pointer[compiledRules]
}

// Match describes why a message was classified the way it was.
type Match struct {
	Mode Mode
	// Kind is "phrase", "pattern" or "default".
	Kind string
	// Rule is the phrase or pattern that matched. Empty for the default.
	Rule string
}

// NewClassifier builds a classifier over rs.
func NewClassifier(rs RuleSet) (*Classifier, error) {
	cr, err := compile(rs)
	if err != nil {
		return nil, err
	}
	c := &Classifier{}
	c.rules.Store(cr)
	return c, nil
}

// NewDefaultClassifier builds a classifier over the built-in rules.
func NewDefaultClassifier() *Classifier {
	c, err := NewClassifier(DefaultRules())
	if err != nil {
		panic("router: default rules: " + err.Error())
	}
	return c
}

var defaultClassifier = sync.OnceValue(NewDefaultClassifier)

// Classify classifies text with the built-in rules.
func Classify(text string) Mode {
	return defaultClassifier().Classify(text)
}

// Classify returns the mode for text. It never fails: text that matches no
// group, including empty text, is DefaultMode.
func (c *Classifier) Classify(text string) Mode {
	return c.Explain(text).Mode
}

// Explain classifies text and reports the rule that decided it.
func (c *Classifier) Explain(text string) Match {
	cr := c.rules.Load()
	q := Normalize(text)
	if q == "" || cr == nil {
		return Match{Mode: DefaultMode, Kind: "default"}
	}

	for _, g := range cr.groups {
		for _, ph := range g.phrases {
			if strings.Contains(q, ph) {
				return Match{Mode: g.mode, Kind: "phrase", Rule: ph}
			}
		}
		for _, re := range g.patterns {
			if re.MatchString(q) {
				return Match{Mode: g.mode, Kind: "pattern", Rule: re.String()}
			}
		}
	}
	return Match{Mode: DefaultMode, Kind: "default"}
}

// Swap replaces the active rules. On error the old rules stay in place.
func (c *Classifier) Swap(rs RuleSet) error {
	cr, err := compile(rs)
	if err != nil {
		return err
	}
	c.rules.Store(cr)
	return nil
}

// Rules returns the active rule table.
func (c *Classifier) Rules() RuleSet {
	if cr := c.rules.Load(); cr != nil {
		return cr.source
	}
	return RuleSet{}
}

// Normalize folds text into the form rules are matched against: NFKC,
// lower case, trimmed.
func Normalize(text string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFKC.String(text)))
}
