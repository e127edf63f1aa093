package validate

import "strings"

// Escaped entity forms produced by SanitizeText. A leading '&' that begins
// one of these is considered already escaped and is left alone, which makes
// sanitization idempotent.
var knownEntities = []string{"&amp;", "&lt;", "&gt;", "&quot;", "&#39;"}

// SanitizeText trims surrounding whitespace and neutralizes
// markup-significant characters by HTML-entity escaping. Idempotent:
// sanitizing already-sanitized text yields the same string. Must be applied
// after bound checks and before the text is interpolated into an outbound
// prompt.
func SanitizeText(s string) string {
	s = strings.TrimSpace(s)

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			if ent := entityAt(s, i); ent != "" {
				b.WriteString(ent)
				i += len(ent) - 1
			} else {
				b.WriteString("&amp;")
			}
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#39;")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// entityAt returns the known entity starting at s[i], or "".
func entityAt(s string, i int) string {
	for _, ent := range knownEntities {
		if strings.HasPrefix(s[i:], ent) {
			return ent
		}
	}
	return ""
}
