// Package gcode locates and rewrites the spindle-speed word in line-oriented
// G-code program text. It depends on exactly one piece of structure: lines
// terminated by LF or CRLF, with an S word followed immediately by an
// unsigned numeric literal somewhere near the start of the program.
package gcode

import (
	"strconv"
)

// Options bound the locator's search window. The initial commanded speed is
// expected near the start of a program; the command may legitimately reappear
// later to change speed mid-job, so matches past the window are ignored.
type Options struct {
	// MaxLines limits the search to the first N lines (0 = unbounded).
	MaxLines int
	// StopAtMotion ends the window at the first motion command (G word).
	StopAtMotion bool
}

// TokenMatch identifies the numeric literal of the first spindle-speed word.
// Start and End span exactly the literal, excluding the S letter.
type TokenMatch struct {
	Line  int     // Zero-based line index
	Start int     // Byte offset of the numeric literal within the content
	End   int     // Byte offset one past the literal
	Speed float64 // Speed the literal currently commands
}

// Locate scans content from the start of the file for the first S word
// within the search window and returns its match, or nil when no
// spindle-speed command is found. The first match wins.
func Locate(content []byte, opts Options) *TokenMatch {
	offset := 0
	for line := 0; offset < len(content); line++ {
		if opts.MaxLines > 0 && line >= opts.MaxLines {
			return nil
		}

		end := offset
		for end < len(content) && content[end] != '\n' {
			end++
		}
		lineEnd := end
		if lineEnd > offset && content[lineEnd-1] == '\r' {
			lineEnd--
		}

		match, motion := scanLine(content, offset, lineEnd, line, opts.StopAtMotion)
		if match != nil {
			return match
		}
		if motion {
			return nil
		}

		offset = end + 1
	}
	return nil
}

// scanLine walks one line left to right. Whichever word appears first
// decides: an S word with a numeric literal is a match, a G word (when
// StopAtMotion is set) ends the window.
func scanLine(content []byte, start, end, line int, stopAtMotion bool) (*TokenMatch, bool) {
	for i := start; i < end; i++ {
		c := content[i]
		if i > start && !isWordBoundary(content[i-1]) {
			continue
		}
		if stopAtMotion && (c == 'G' || c == 'g') && i+1 < end && isDigit(content[i+1]) {
			if isMotionCode(content, i+1, end) {
				return nil, true
			}
			continue
		}
		if c != 'S' && c != 's' {
			continue
		}
		numStart := i + 1
		numEnd := numStart
		for numEnd < end && isDigit(content[numEnd]) {
			numEnd++
		}
		if numEnd == numStart {
			continue
		}
		// Decimal point tolerated, no sign or exponent.
		if numEnd < end && content[numEnd] == '.' {
			frac := numEnd + 1
			for frac < end && isDigit(content[frac]) {
				frac++
			}
			numEnd = frac
		}
		speed, err := strconv.ParseFloat(string(content[numStart:numEnd]), 64)
		if err != nil {
			continue
		}
		return &TokenMatch{Line: line, Start: numStart, End: numEnd, Speed: speed}, false
	}
	return nil, false
}

// isMotionCode reports whether the digits starting at pos spell a motion
// command (G0-G3, leading zeros tolerated, e.g. G01). Preamble codes such as
// G21 or G90 do not end the search window.
func isMotionCode(content []byte, pos, end int) bool {
	numEnd := pos
	for numEnd < end && isDigit(content[numEnd]) {
		numEnd++
	}
	value, err := strconv.Atoi(string(content[pos:numEnd]))
	if err != nil {
		return false
	}
	return value <= 3
}

func isWordBoundary(c byte) bool {
	return c == ' ' || c == '\t'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
