package normalize

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// Wrap splits s into segments no wider than width display columns.
// Breaks prefer whitespace, which is collapsed at the break point;
// without whitespace in range the break falls mid-word. Lines that
// already fit are returned unchanged, so wrapping is idempotent.
func Wrap(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}

	runes := []rune(s)
	var out []string
	start := 0
	for start < len(runes) {
		if start > 0 {
			for start < len(runes) && unicode.IsSpace(runes[start]) {
				start++
			}
			if start == len(runes) {
				break
			}
		}
		rest := runes[start:]
		if runewidth.StringWidth(string(rest)) <= width {
			out = append(out, string(rest))
			break
		}

		end := fitEnd(runes, start, width)
		brk := end
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			for j := end - 1; j > start; j-- {
				if unicode.IsSpace(runes[j]) {
					brk = j
					break
				}
			}
		}

		seg := strings.TrimRightFunc(string(runes[start:brk]), unicode.IsSpace)
		if seg != "" {
			out = append(out, seg)
		}
		start = brk
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}

// fitEnd returns the largest index e > start such that runes[start:e]
// fits within width columns. At least one rune is always taken.
func fitEnd(runes []rune, start, width int) int {
	w := 0
	for i := start; i < len(runes); i++ {
		rw := runewidth.RuneWidth(runes[i])
		if w+rw > width {
			if i == start {
				return start + 1
			}
			return i
		}
		w += rw
	}
	return len(runes)
}
