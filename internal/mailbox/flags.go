package mailbox

import (
	"strings"

	"github.com/syncgw/mail-bundle/internal/ident"
)

var boxFlagNames = map[string]ident.BoxFlags{
	"\\noinferiors":   ident.BoxNoInferiors,
	"\\noselect":      ident.BoxNoSelect,
	"\\marked":        ident.BoxMarked,
	"\\unmarked":      ident.BoxUnmarked,
	"\\haschildren":   ident.BoxHasChildren,
	"\\hasnochildren": ident.BoxHasNoChildren,
}

// ParseBoxFlags converts the attribute strings of a folder listing entry
// into the internal flag bits. Unknown attributes are ignored.
func ParseBoxFlags(attrs []string) ident.BoxFlags {
	var out ident.BoxFlags
	for _, a := range attrs {
		out |= boxFlagNames[strings.ToLower(a)]
	}
	return out
}

// messageFlagOrder fixes the rendering order of the stored flag string.
var messageFlagOrder = []struct {
	wire string
	name string
}{
	{"\\seen", "Seen"},
	{"\\answered", "Answered"},
	{"\\flagged", "Flagged"},
	{"\\deleted", "Deleted"},
	{"\\draft", "Draft"},
}

// ConvertFlags renders protocol message flags as the comma-joined stored
// form. Keyword flags without a mapping are dropped.
func ConvertFlags(flags []string) string {
	set := make(map[string]bool, len(flags))
	for _, f := range flags {
		set[strings.ToLower(f)] = true
	}
	var parts []string
	for _, m := range messageFlagOrder {
		if set[m.wire] {
			parts = append(parts, m.name)
		}
	}
	return strings.Join(parts, ",")
}

// HasFlag reports whether a stored flag string contains the named flag.
func HasFlag(stored, name string) bool {
	for _, p := range strings.Split(stored, ",") {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

// WireFlags converts a stored flag string back to protocol flags.
func WireFlags(stored string) []string {
	if stored == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(stored, ",") {
		for _, m := range messageFlagOrder {
			if strings.EqualFold(p, m.name) {
				out = append(out, "\\"+m.name)
			}
		}
	}
	return out
}
