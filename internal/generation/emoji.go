package generation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	headingRe = regexp.MustCompile(`^(\s{0,3}#{1,6}\s+)(.*)$`)
	markerRe  = regexp.MustCompile(`(?i)^(\s*(?:[-*+]\s+|\d+[.)]\s+|>\s*)?)((?:\*\*|__)?)(définitions?|exemples?|attention|à retenir|astuces?|résumé)((?:\*\*|__)?)(\s*:|\s|$)`)
)

var markerEmoji = map[string]string{
	"définition": "📖",
	"exemple":    "💡",
	"attention":  "⚠️",
	"à retenir":  "🧠",
	"astuce":     "✨",
	"résumé":     "📝",
}

// AnnotateEmojis prefixes markdown headings and French study markers
// (Définition, Exemple, Attention, À retenir, Astuce, Résumé) with an emoji.
// Lines that already start with an emoji are left alone, so applying it
// twice gives the same result.
func AnnotateEmojis(text string) string {
	if text == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	inFence := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		lines[i] = annotateLine(line)
	}
	return strings.Join(lines, "\n")
}

func annotateLine(line string) string {
	if m := headingRe.FindStringSubmatch(line); m != nil {
		prefix, rest := m[1], m[2]
		if rest == "" || startsWithEmoji(stripEmphasis(rest)) {
			return line
		}
		emoji := markerFor(rest)
		if emoji == "" {
			emoji = headingEmoji(strings.Count(prefix, "#"))
		}
		return prefix + emoji + " " + rest
	}

	m := markerRe.FindStringSubmatchIndex(line)
	if m == nil {
		return line
	}
	keyword := line[m[6]:m[7]]
	emoji := markerEmoji[normalizeMarker(keyword)]
	if emoji == "" {
		return line
	}
	lead := line[m[2]:m[3]]
	return lead + emoji + " " + line[m[3]:]
}

func headingEmoji(level int) string {
	switch level {
	case 1:
		return "📘"
	case 2:
		return "📌"
	default:
		return "🔹"
	}
}

// markerFor returns the marker emoji when s begins with a study marker.
func markerFor(s string) string {
	m := markerRe.FindStringSubmatch(s)
	if m == nil || m[1] != "" {
		return ""
	}
	return markerEmoji[normalizeMarker(m[3])]
}

func normalizeMarker(keyword string) string {
	k := strings.ToLower(keyword)
	if k != "à retenir" {
		k = strings.TrimSuffix(k, "s")
	}
	return k
}

func stripEmphasis(s string) string {
	return strings.TrimLeft(s, "*_ ")
}

func startsWithEmoji(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return false
	}
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0x2B00 && r <= 0x2BFF:
		return true
	}
	return unicode.Is(unicode.So, r)
}
