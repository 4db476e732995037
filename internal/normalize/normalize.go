// Package normalize turns raw process output into display-ready lines.
package normalize

import (
	"regexp"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/charmbracelet/x/ansi"
)

// Class is the semantic tag attached to an output line for styling.
type Class int

const (
	Plain Class = iota
	Error
	Warning
	Success
	Separator
)

func (c Class) String() string {
	switch c {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Success:
		return "success"
	case Separator:
		return "separator"
	default:
		return "plain"
	}
}

// Line is one normalized, classified line of output.
type Line struct {
	Text  string
	Class Class
}

// Options configures a Normalizer.
type Options struct {
	// Width is the wrap width in display columns. Zero or less disables wrapping.
	Width int
}

// Normalizer strips, classifies and wraps raw output lines. It is safe
// for concurrent use.
type Normalizer struct {
	width atomic.Int64
}

func New(opts Options) *Normalizer {
	n := &Normalizer{}
	n.width.Store(int64(opts.Width))
	return n
}

// Width returns the current wrap width.
func (n *Normalizer) Width() int { return int(n.width.Load()) }

// SetWidth changes the wrap width for lines normalized from now on.
func (n *Normalizer) SetWidth(w int) { n.width.Store(int64(w)) }

// Normalize converts one raw line into one or more classified lines.
// An empty line still yields a single plain line.
func (n *Normalizer) Normalize(raw string) []Line {
	text := Strip(raw)
	class := Classify(text)
	segs := Wrap(text, n.Width())
	out := make([]Line, 0, len(segs))
	for _, s := range segs {
		out = append(out, Line{Text: s, Class: class})
	}
	return out
}

var styleWord = `(?:bold|dim|italic|underline|strike|blink|reverse|b|i|u|not|on|link|default|` +
	`black|red|green|yellow|blue|magenta|cyan|white|grey\d*|gray\d*|` +
	`bright_(?:black|red|green|yellow|blue|magenta|cyan|white)|` +
	`color\(\d{1,3}\)|#[0-9a-fA-F]{6}|#[0-9a-fA-F]{3})`

// markupTag matches display markup such as [bold], [/], [bold red] or [/green].
// Bracketed text outside the style vocabulary ([ OK ], [1/3], [ERROR]) is left alone.
var markupTag = regexp.MustCompile(`\[(?:/|/?` + styleWord + `(?:\s+` + styleWord + `)*)\]`)

// Strip removes terminal escape sequences, carriage-return redraws,
// stray control characters and display markup tags.
func Strip(s string) string {
	s = lastRedraw(s)
	s = ansi.Strip(s)
	s = expandTabs(s)
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	return markupTag.ReplaceAllString(s, "")
}

// lastRedraw keeps the text after the last carriage return that is
// followed by something, which is what a terminal would have shown.
func lastRedraw(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	parts := strings.Split(s, "\r")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return ""
}

const tabStop = 8

func expandTabs(s string) string {
	if !strings.ContainsRune(s, '\t') {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := tabStop - col%tabStop
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col++
	}
	return b.String()
}

var (
	errorWords   = []string{"error", "failed", "failure", "✗"}
	warningWords = []string{"warning", "warn", "⚠"}
	successRe    = regexp.MustCompile(`(?i)\b(?:success(?:ful(?:ly)?)?|done|ok)\b`)
)

// Classify tags a stripped line. Keyword checks run in priority order:
// error, warning, success, then separator.
func Classify(s string) Class {
	lower := strings.ToLower(s)
	for _, w := range errorWords {
		if strings.Contains(lower, w) {
			return Error
		}
	}
	for _, w := range warningWords {
		if strings.Contains(lower, w) {
			return Warning
		}
	}
	if successRe.MatchString(s) || strings.Contains(s, "✓") {
		return Success
	}
	if isSeparator(s) {
		return Separator
	}
	return Plain
}

const separatorGlyphs = "-=_~*+─━═╌╍┄┅┈┉│┃║╔╗╚╝╠╣╦╩╬┌┐└┘├┤┬┴┼╭╮╯╰"

func isSeparator(s string) bool {
	s = strings.TrimFunc(s, unicode.IsSpace)
	if len([]rune(s)) < 3 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(separatorGlyphs, r) {
			return false
		}
	}
	return true
}
