package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/simon/managectl/internal/registry"
	"github.com/simon/managectl/internal/status"
)

var (
	// Adaptive colors for light/dark terminal backgrounds
	accentColor = lipgloss.AdaptiveColor{Light: "#D6249F", Dark: "#FF79C6"}
	greenColor  = lipgloss.AdaptiveColor{Light: "#116620", Dark: "#50FA7B"}
	yellowColor = lipgloss.AdaptiveColor{Light: "#7D5A00", Dark: "#F1FA8C"}
	redColor    = lipgloss.AdaptiveColor{Light: "#B31D28", Dark: "#FF5555"}
	dimColor    = lipgloss.AdaptiveColor{Light: "#777777", Dark: "#6272A4"}
	hlBgColor   = lipgloss.AdaptiveColor{Light: "#E8E8E8", Dark: "#333333"}
	cyanColor   = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#8BE9FD"}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			PaddingLeft(1)

	headerStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			PaddingLeft(1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	selectedRowStyle = lipgloss.NewStyle().
				Background(hlBgColor)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Underline(true)

	tabStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	targetStyle = lipgloss.NewStyle().
			Foreground(cyanColor)

	dangerStyle = lipgloss.NewStyle().
			Foreground(redColor)

	runningStyle = lipgloss.NewStyle().
			Foreground(yellowColor)

	successStyle = lipgloss.NewStyle().
			Foreground(greenColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(redColor)

	warningStyle = lipgloss.NewStyle().
			Foreground(yellowColor)

	runTitleStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	commandStyle = lipgloss.NewStyle().
			Foreground(cyanColor)

	ruleStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	noteStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Italic(true)

	descStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	confirmLabelStyle = lipgloss.NewStyle().
				Foreground(redColor).
				Bold(true).
				PaddingLeft(1)

	confirmKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"}).
			Background(redColor).
			Bold(true).
			Padding(0, 1)

	confirmDimStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			PaddingLeft(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			PaddingLeft(1)

	inputLabelStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	panelBorderStyle = lipgloss.NewStyle().
				Foreground(dimColor)
)

// pad right-pads s to width with spaces (based on visual width, not byte count).
func pad(s string, width int) string {
	visual := lipgloss.Width(s)
	if visual >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visual)
}

// formatAge formats how long ago something happened, coarsely.
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours())/24)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	// Title and target
	b.WriteString(titleStyle.Render("managectl"))
	if t := m.currentTarget(); !t.IsZero() {
		b.WriteString("  ")
		b.WriteString(targetStyle.Render("⌂ " + t.String()))
	}
	b.WriteString("\n\n")

	m.renderTabs(&b)
	b.WriteString("\n\n")

	m.renderActions(&b)

	// Description of the selected action
	if a, ok := m.selected(); ok {
		b.WriteString(descStyle.Render("  " + a.Description))
	}
	b.WriteString("\n\n")

	m.renderPanel(&b)

	// Input / confirmation / help share one slot to avoid layout shift
	if rec, armed := m.gate.Armed(); armed {
		b.WriteString(confirmLabelStyle.Render(fmt.Sprintf("Run '%s'?", rec.Title)))
		b.WriteString("  ")
		b.WriteString(confirmKeyStyle.Render("Enter"))
		b.WriteString(confirmDimStyle.Render("confirm"))
		b.WriteString("  ")
		b.WriteString(confirmKeyStyle.Render("Esc"))
		b.WriteString(confirmDimStyle.Render("cancel"))
	} else if m.filtering {
		b.WriteString(inputLabelStyle.Render(" / "))
		b.WriteString(m.input.View())
	} else if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf(" Error: %v", m.err)))
	} else if m.notice != "" {
		b.WriteString(helpStyle.Render(m.notice))
	} else if m.status.Current() == status.Running {
		b.WriteString(helpStyle.Render("x cancel  pgup/pgdn scroll  enter run another  q quit"))
	} else {
		b.WriteString(helpStyle.Render("enter run  1-9/tab switch tab  m target  / filter  c clear  j/k navigate  q quit"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderTabs(b *strings.Builder) {
	parts := make([]string, 0, len(m.tabs))
	for i, t := range m.tabs {
		label := fmt.Sprintf("%d %s", i+1, t.Title)
		if i == m.tab {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	b.WriteString(" ")
	b.WriteString(strings.Join(parts, tabStyle.Render("  │  ")))
}

func (m Model) renderActions(b *strings.Builder) {
	maxVis := m.listRows()
	if len(m.filtered) == 0 {
		b.WriteString(headerStyle.Render("  No matching actions."))
		b.WriteString(strings.Repeat("\n", maxVis))
		return
	}

	end := min(m.offset+maxVis, len(m.filtered))
	titleWidth := 4
	for _, a := range m.filtered[m.offset:end] {
		titleWidth = max(titleWidth, lipgloss.Width(a.Title))
	}

	for i := m.offset; i < end; i++ {
		a := m.filtered[i]
		row := " " + pad(a.Title, titleWidth) + "  " + m.renderLastRun(a)
		if a.Dangerous {
			row += "  " + dangerStyle.Render("⚠ dangerous")
		}
		if a.RequiresTarget {
			row += "  " + targetStyle.Render("⌂")
		}

		if i == m.cursor {
			b.WriteString(cursorStyle.Render(" >"))
			b.WriteString(selectedRowStyle.Render(row))
		} else {
			b.WriteString("  ")
			b.WriteString(row)
		}
		b.WriteString("\n")
	}
	// Reserve constant height
	b.WriteString(strings.Repeat("\n", maxVis-(end-m.offset)))
}

func (m Model) renderLastRun(a registry.Action) string {
	r, ok := m.lastRuns[a.ID]
	if !ok {
		return pad("", 10)
	}
	age := formatAge(time.Since(r.FinishedAt))
	if r.ExitCode == 0 {
		return pad(successStyle.Render("✓ "+age), 10)
	}
	return pad(errorStyle.Render(fmt.Sprintf("✗ %d %s", r.ExitCode, age)), 10)
}

func (m Model) renderPanel(b *strings.Builder) {
	title := " Output "
	if m.run != nil {
		title = fmt.Sprintf(" %s %s ", m.indicator(), m.run.action.Title)
	}
	borderTitle := " ───" + title
	remaining := m.width - lipgloss.Width(borderTitle) - 1
	if remaining > 0 {
		borderTitle += strings.Repeat("─", remaining)
	}
	b.WriteString(panelBorderStyle.Render(borderTitle))
	b.WriteString("\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	b.WriteString(panelBorderStyle.Render(" " + strings.Repeat("─", max(0, m.width-2))))
	b.WriteString("\n")
}

func (m Model) indicator() string {
	switch s := m.status.Current(); s {
	case status.Running:
		return m.spinner.View()
	case status.Success:
		return successStyle.Render(status.Glyph(s, 0))
	case status.Failed:
		return errorStyle.Render(status.Glyph(s, 0))
	default:
		return status.Glyph(s, 0)
	}
}
