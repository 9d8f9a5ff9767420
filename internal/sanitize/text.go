package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

// wrapperStart/wrapperEnd are the private-use glyphs the vendor wraps
// inline citation and tool artifacts in. A matched pair is stripped
// together with everything between.
const (
	wrapperStart = ''
	wrapperEnd   = ''
)

// citationRe matches vendor citation-marker tokens left behind in assistant
// text, e.g. "citeturn0search1" or "turn2search5".
var citationRe = regexp.MustCompile(`(?i)(?:cite)?turn\d+search\d+`)

// spaceRunRe collapses runs of two or more ASCII spaces.
var spaceRunRe = regexp.MustCompile(` {2,}`)

// Clean normalizes raw export text: literal "\n" escapes become real
// newlines, citation wrappers and leftover invisible code points are
// stripped, space runs are collapsed, and the result is trimmed.
// Clean is idempotent.
func Clean(s string) string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = stripWrapped(s)
	s = stripInvisible(s)
	s = citationRe.ReplaceAllString(s, "")
	s = spaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripWrapped removes matched wrapper-glyph pairs inclusive of content.
// Unmatched wrapper glyphs are left for stripInvisible to remove.
func stripWrapped(s string) string {
	if !strings.ContainsRune(s, wrapperStart) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == wrapperStart {
			end := -1
			for j := i + 1; j < len(runes); j++ {
				if runes[j] == wrapperEnd {
					end = j
					break
				}
			}
			if end >= 0 {
				i = end
				continue
			}
		}
		sb.WriteRune(runes[i])
	}
	return sb.String()
}

// stripInvisible removes control characters (keeping newline and tab),
// zero-width characters, and private-use-area code points.
func stripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\t':
			return r
		case '\u200B', '\u200C', '\u200D', '\uFEFF':
			return -1
		}
		if unicode.Is(unicode.Cc, r) || unicode.Is(unicode.Co, r) {
			return -1
		}
		return r
	}, s)
}
