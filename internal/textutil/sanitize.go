package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxFileNameLength caps SafeFileName output, in runes.
const MaxFileNameLength = 100

// reservedNames are device names Windows refuses as file names regardless of
// extension.
var reservedNames = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {}, "com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {}, "lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

func isUnsafeRune(r rune) bool {
	switch r {
	case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
		return true
	}
	return r < 0x20 || r == 0x7f || r == utf8.RuneError || !unicode.IsPrint(r) && !unicode.IsSpace(r)
}

// SafeFileName normalises name to NFC, replaces characters that are invalid in
// file names with underscores and caps the result at MaxFileNameLength runes.
// Leading and trailing spaces and dots are trimmed. Empty input stays empty.
func SafeFileName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(name))
	count := 0
	for _, r := range name {
		if count == MaxFileNameLength {
			break
		}
		if isUnsafeRune(r) {
			r = '_'
		} else if unicode.IsSpace(r) {
			r = ' '
		}
		b.WriteRune(r)
		count++
	}
	out := strings.Trim(b.String(), " .")
	if _, reserved := reservedNames[strings.ToLower(out)]; reserved {
		out = "_" + out
	}
	return out
}
