package tui

import (
	"fmt"
	"strings"

	"github.com/simon/managectl/internal/engine"
	"github.com/simon/managectl/internal/normalize"
)

type entryKind int

const (
	kindOutput entryKind = iota
	kindTitle
	kindCommand
	kindRule
	kindOK
	kindFail
	kindNote
)

type entry struct {
	kind entryKind
	line normalize.Line
}

// pane is the output panel content of the current run.
type pane struct {
	entries []entry
	outputs int // lines emitted by the process
}

func (p *pane) reset() {
	p.entries = nil
	p.outputs = 0
}

func (p *pane) add(kind entryKind, text string) {
	p.entries = append(p.entries, entry{kind: kind, line: normalize.Line{Text: text}})
}

func (p *pane) output(l normalize.Line) {
	p.entries = append(p.entries, entry{kind: kindOutput, line: l})
	p.outputs++
}

// begin writes the run header.
func (p *pane) begin(title, command, target string) {
	p.reset()
	if target != "" {
		title = fmt.Sprintf("%s on %s", title, target)
	}
	p.add(kindTitle, "▶ "+title)
	p.add(kindCommand, "$ "+command)
	p.add(kindRule, "")
}

// finish writes the footer for res.
func (p *pane) finish(res engine.Result) {
	if p.outputs == 0 && res.Outcome == engine.Success {
		p.add(kindNote, "Command completed (no output)")
	}
	p.add(kindRule, "")
	switch res.Outcome {
	case engine.Success:
		p.add(kindOK, "✓ "+res.Summary())
	case engine.NonZeroExit:
		p.add(kindFail, "✗ "+res.Summary())
		if p.outputs == 0 {
			p.add(kindNote, "No output was produced. The command may have failed silently.")
		}
	case engine.ExecNotFound:
		p.add(kindFail, "✗ "+res.Summary())
		p.add(kindNote, "Make sure the command is installed and available in PATH.")
	default:
		p.add(kindFail, "✗ "+res.Summary())
	}
}

func (p *pane) render(width int) string {
	var b strings.Builder
	for i, e := range p.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(renderEntry(e, width))
	}
	return b.String()
}

func renderEntry(e entry, width int) string {
	switch e.kind {
	case kindTitle:
		return runTitleStyle.Render(e.line.Text)
	case kindCommand:
		return commandStyle.Render(e.line.Text)
	case kindRule:
		return ruleStyle.Render(strings.Repeat("─", max(3, width)))
	case kindOK:
		return successStyle.Bold(true).Render(e.line.Text)
	case kindFail:
		return errorStyle.Bold(true).Render(e.line.Text)
	case kindNote:
		return noteStyle.Render(e.line.Text)
	}
	switch e.line.Class {
	case normalize.Error:
		return errorStyle.Render(e.line.Text)
	case normalize.Warning:
		return warningStyle.Render(e.line.Text)
	case normalize.Success:
		return successStyle.Render(e.line.Text)
	case normalize.Separator:
		return ruleStyle.Render(e.line.Text)
	default:
		return e.line.Text
	}
}
