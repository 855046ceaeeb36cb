// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"strings"
)

// ============================================================================
// MODE TYPE
// ============================================================================

// Mode is a conversation mode. It partitions chat history and labels every
// request sent to the inference service.
type Mode string

const (
	// ModeCode is code generation.
	ModeCode Mode = "code"
	// ModeChat is free conversation and the classifier default.
	ModeChat Mode = "chat"
	// ModeExplain is concept explanation.
	ModeExplain Mode = "explain"
	// ModeRoadmap is learning roadmap generation.
	ModeRoadmap Mode = "roadmap"
)

// DefaultMode is what Classify returns when no rule group matches.
const DefaultMode = ModeChat

// AllModes returns every mode in tab order.
func AllModes() []Mode {
	return []Mode{ModeCode, ModeChat, ModeExplain, ModeRoadmap}
}

// ParseMode parses a mode name. Matching ignores case and surrounding space.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q (want one of code, chat, explain, roadmap)", s)
	}
	return m, nil
}

// String returns the wire name of the mode.
func (m Mode) String() string {
	return string(m)
}

// Valid reports whether m is one of the four known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeCode, ModeChat, ModeExplain, ModeRoadmap:
		return true
	}
	return false
}

// Label returns the display name used on tabs and notifications.
func (m Mode) Label() string {
	switch m {
	case ModeCode:
		return "Code"
	case ModeChat:
		return "Chat"
	case ModeExplain:
		return "Explain"
	case ModeRoadmap:
		return "Roadmap"
	default:
		return string(m)
	}
}

// Description returns a one-line summary of the mode.
func (m Mode) Description() string {
	switch m {
	case ModeCode:
		return "Generate code in the selected language"
	case ModeChat:
		return "General conversation"
	case ModeExplain:
		return "Explain concepts step by step"
	case ModeRoadmap:
		return "Build a learning roadmap"
	default:
		return ""
	}
}

// priority is the position a mode's rule group must take in a RuleSet.
// Lower runs first. Chat has no group.
func (m Mode) priority() int {
	switch m {
	case ModeRoadmap:
		return 0
	case ModeCode:
		return 1
	case ModeExplain:
		return 2
	default:
		return 3
	}
}
