// Package emoji parses the raw emoji token stored on a section and
// decides whether it can safely be attached to a button in a given
// workspace. A custom emoji reference is only renderable in the
// workspace that owns it; anywhere else it shows up as a broken token.
package emoji

import "regexp"

// customPattern matches the platform's custom emoji token: an optional
// animation marker, a name and a numeric id inside angle brackets.
var customPattern = regexp.MustCompile(`^<(a?):([a-zA-Z0-9_]+):([0-9]+)>$`)

// Emoji is a parsed token. A plain emoji only carries Name; a custom
// one also has an ID and possibly the animation flag.
type Emoji struct {
	Name     string
	ID       string
	Animated bool
}

// Custom reports whether this is a workspace-owned emoji reference.
func (e *Emoji) Custom() bool {
	return e.ID != ""
}

// Parse interprets a raw token. Empty input yields no emoji. Anything
// that is not exactly the custom grammar is treated as a plain symbol,
// including unicode emoji and free text.
func Parse(raw string) (*Emoji, bool) {
	if raw == "" {
		return nil, false
	}
	if m := customPattern.FindStringSubmatch(raw); m != nil {
		return &Emoji{Name: m[2], ID: m[3], Animated: m[1] == "a"}, true
	}
	return &Emoji{Name: raw}, true
}

// Usable reports whether the emoji can be rendered in a workspace whose
// custom emoji ids are given by known. Plain emoji are always usable;
// custom ones only when the workspace owns them. A nil set means the
// workspace is unknown, so no custom emoji is usable.
func Usable(e *Emoji, known map[string]bool) bool {
	if e == nil {
		return false
	}
	if !e.Custom() {
		return true
	}
	if known == nil {
		return false
	}
	return known[e.ID]
}
