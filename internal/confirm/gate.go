// Package confirm implements the two-step confirmation for dangerous actions.
package confirm

// Decision is what the caller should do with a selection.
type Decision int

const (
	// Proceed means the action runs now.
	Proceed Decision = iota
	// AwaitConfirm means the action was armed and needs a second selection.
	AwaitConfirm
	// Dismissed means the selection only cleared an armed action.
	Dismissed
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case AwaitConfirm:
		return "await-confirm"
	default:
		return "dismissed"
	}
}

// Record identifies the armed action.
type Record struct {
	ID    string
	Title string
}

// Gate guards one output surface. The zero value is unarmed.
type Gate struct {
	armed *Record
}

// Select evaluates a selection of the action id. A dangerous action arms
// on its first selection and proceeds on the next consecutive selection
// of the same id. While armed, selecting any other action disarms without
// running anything, even when that action is dangerous too.
func (g *Gate) Select(id, title string, dangerous bool) Decision {
	if g.armed != nil {
		armed := g.armed
		g.armed = nil
		if armed.ID == id {
			return Proceed
		}
		return Dismissed
	}
	if !dangerous {
		return Proceed
	}
	g.armed = &Record{ID: id, Title: title}
	return AwaitConfirm
}

// Armed returns the pending record, if any.
func (g *Gate) Armed() (Record, bool) {
	if g.armed == nil {
		return Record{}, false
	}
	return *g.armed, true
}

// Disarm clears any armed action. Called on navigation and context changes.
func (g *Gate) Disarm() {
	g.armed = nil
}
