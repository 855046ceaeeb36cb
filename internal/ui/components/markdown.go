// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders assistant replies with glamour. Renderers are
// built lazily per wrap width. When glamour fails, or rendering is
// disabled, content is returned unchanged.
type MarkdownRenderer struct {
	mu        sync.Mutex
	enabled   bool
	style     string
	renderers map[int]*glamour.TermRenderer
}

// NewMarkdownRenderer returns a renderer. style is a glamour style name;
// empty means auto-detect from the terminal.
func NewMarkdownRenderer(enabled bool, style string) *MarkdownRenderer {
	return &MarkdownRenderer{
		enabled:   enabled,
		style:     style,
		renderers: make(map[int]*glamour.TermRenderer),
	}
}

// Render renders content wrapped at width columns.
func (r *MarkdownRenderer) Render(content string, width int) string {
	if r == nil || !r.enabled || strings.TrimSpace(content) == "" {
		return content
	}
	if width < 20 {
		width = 20
	}
	tr := r.renderer(width)
	if tr == nil {
		return content
	}
	out, err := tr.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

func (r *MarkdownRenderer) renderer(width int) *glamour.TermRenderer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tr, ok := r.renderers[width]; ok {
		return tr
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if r.style != "" {
		opts = append(opts, glamour.WithStandardStyle(r.style))
	} else {
		opts = append(opts, glamour.WithAutoStyle())
	}
	tr, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		tr = nil
	}
	r.renderers[width] = tr
	return tr
}
