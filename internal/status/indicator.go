package status

// SpinnerFrames are the braille frames shown while a session runs.
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Glyph returns the indicator for s. frame selects the spinner frame
// while running and is ignored otherwise.
func Glyph(s Status, frame int) string {
	switch s {
	case Running:
		if frame < 0 {
			frame = -frame
		}
		return SpinnerFrames[frame%len(SpinnerFrames)]
	case Success:
		return "✓"
	case Failed:
		return "✗"
	default:
		return "·"
	}
}
