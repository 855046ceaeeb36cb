// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/modechat/internal/router"
	"github.com/jeranaias/modechat/internal/ui/styles"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind represents the type of toast notification.
type ToastKind int

const (
	// ToastKindMode announces a mode switch, colored by the mode.
	ToastKindMode ToastKind = iota
	// ToastKindStatus is informational.
	ToastKindStatus
	// ToastKindWarning is a warning.
	ToastKindWarning
	// ToastKindError is an error.
	ToastKindError
)

// DefaultToastDuration is the default auto-dismiss duration.
const DefaultToastDuration = 4 * time.Second

// WarningToastDuration is longer so warnings can be read.
const WarningToastDuration = 6 * time.Second

// Toast is a non-blocking notification.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	Mode      router.Mode
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired reports whether the toast should be dismissed at now.
func (t Toast) IsExpired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// TimeRemaining returns how long the toast stays up after now.
func (t Toast) TimeRemaining(now time.Time) time.Duration {
	remaining := t.Duration - now.Sub(t.CreatedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// ToastManager keeps the visible toasts, newest first.
type ToastManager struct {
	mu        sync.Mutex
	toasts    []Toast
	nextID    int
	maxToasts int
	duration  time.Duration
	now       func() time.Time
}

// NewToastManager creates a manager whose mode and status toasts last
// duration. A non-positive duration means DefaultToastDuration.
func NewToastManager(duration time.Duration) *ToastManager {
	if duration <= 0 {
		duration = DefaultToastDuration
	}
	return &ToastManager{
		nextID:    1,
		maxToasts: 3,
		duration:  duration,
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (m *ToastManager) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Add shows a toast and returns its id.
func (m *ToastManager) Add(t Toast) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	t.ID = m.nextID
	m.nextID++
	if t.CreatedAt.IsZero() {
		t.CreatedAt = m.now()
	}
	if t.Duration <= 0 {
		t.Duration = m.duration
		if t.Kind == ToastKindWarning || t.Kind == ToastKindError {
			t.Duration = WarningToastDuration
		}
	}

	m.toasts = append([]Toast{t}, m.toasts...)
	if len(m.toasts) > m.maxToasts {
		m.toasts = m.toasts[:m.maxToasts]
	}
	return t.ID
}

// AddMode announces a switch to mode.
func (m *ToastManager) AddMode(mode router.Mode, at time.Time) int {
	return m.Add(Toast{
		Message:   "Switched to " + mode.Label() + " mode",
		Kind:      ToastKindMode,
		Mode:      mode,
		CreatedAt: at,
	})
}

// AddWarning shows a warning.
func (m *ToastManager) AddWarning(message string) int {
	return m.Add(Toast{Message: message, Kind: ToastKindWarning})
}

// AddStatus shows an informational toast.
func (m *ToastManager) AddStatus(message string) int {
	return m.Add(Toast{Message: message, Kind: ToastKindStatus})
}

// DismissNewest removes the most recent toast. It reports whether one was
// visible.
func (m *ToastManager) DismissNewest() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.toasts) == 0 {
		return false
	}
	m.toasts = m.toasts[1:]
	return true
}

// Tick drops expired toasts and returns the rest.
func (m *ToastManager) Tick() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	active := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.IsExpired(now) {
			active = append(active, t)
		}
	}
	m.toasts = active
	return append([]Toast(nil), m.toasts...)
}

// Toasts returns a copy of the visible toasts.
func (m *ToastManager) Toasts() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Toast(nil), m.toasts...)
}

// HasToasts reports whether any toast is visible.
func (m *ToastManager) HasToasts() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.toasts) > 0
}

// =============================================================================
// TOAST MESSAGES
// =============================================================================

// ToastTickMsg is sent periodically while toasts are visible.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd ticks toasts every 250ms.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}

// =============================================================================
// TOAST RENDERING
// =============================================================================

// RenderToast renders a single toast.
func RenderToast(t Toast, width int, now time.Time) string {
	maxWidth := 50
	if width > 0 && width-8 < maxWidth {
		maxWidth = width - 8
	}
	if maxWidth < 24 {
		maxWidth = 24
	}

	var color lipgloss.AdaptiveColor
	var icon string
	switch t.Kind {
	case ToastKindMode:
		color = styles.ModeColor(t.Mode)
		icon = styles.StatusIndicators.Active
	case ToastKindWarning:
		color = styles.Amber
		icon = styles.StatusIndicators.Warning
	case ToastKindError:
		color = styles.Rose
		icon = styles.StatusIndicators.Error
	default:
		color = styles.Cyan
		icon = styles.StatusIndicators.Info
	}

	content := lipgloss.NewStyle().Foreground(color).Bold(true).Render(icon+" ") +
		lipgloss.NewStyle().Foreground(styles.TextPrimary).Render(wrapToastText(t.Message, maxWidth-10))

	hints := []string{"[esc] Dismiss"}
	if secs := int(t.TimeRemaining(now).Seconds()); secs > 0 {
		hints = append(hints, strconv.Itoa(secs)+"s")
	}
	content += "\n" + lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true).Render(strings.Join(hints, "  "))

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 2).
		MaxWidth(maxWidth).
		Render(content)
}

// RenderToastStack renders toasts stacked vertically, newest at the bottom.
func RenderToastStack(toasts []Toast, width int, now time.Time) string {
	if len(toasts) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(toasts))
	for i := len(toasts) - 1; i >= 0; i-- {
		rendered = append(rendered, RenderToast(toasts[i], width, now))
	}
	return lipgloss.JoinVertical(lipgloss.Right, rendered...)
}

// wrapToastText performs simple word wrapping.
func wrapToastText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	var lines []string
	var line strings.Builder
	for _, word := range words {
		switch {
		case line.Len() == 0:
			line.WriteString(word)
		case line.Len()+1+len(word) <= maxWidth:
			line.WriteString(" ")
			line.WriteString(word)
		default:
			lines = append(lines, line.String())
			line.Reset()
			line.WriteString(word)
		}
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
