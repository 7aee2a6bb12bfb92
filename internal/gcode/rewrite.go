package gcode

import "strconv"

// ReplaceSpan returns new content identical to the original except that the
// match's numeric span is replaced with the canonical decimal representation
// of rpm. Surrounding text and line endings are preserved verbatim.
func ReplaceSpan(content []byte, match *TokenMatch, rpm int) []byte {
	literal := strconv.Itoa(rpm)
	updated := make([]byte, 0, len(content)-(match.End-match.Start)+len(literal))
	updated = append(updated, content[:match.Start]...)
	updated = append(updated, literal...)
	updated = append(updated, content[match.End:]...)
	return updated
}
