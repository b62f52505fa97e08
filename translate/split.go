package translate

import (
	"strings"
	"unicode"
)

// DefaultMaxCharsPerChunk is the per-request character budget of the
// MyMemory free tier, with headroom.
const DefaultMaxCharsPerChunk = 480

// Split breaks text into lines on "\n" and each line into chunks of at most
// maxChars characters. Lines shorter than maxChars stay whole. Longer lines
// are cut at the last whitespace inside the budget; a run without whitespace
// is cut at exactly maxChars. Leading whitespace after each cut is dropped,
// so joining a line's chunks with one space rebuilds it up to whitespace at
// the cut points. maxChars <= 0 uses DefaultMaxCharsPerChunk.
func Split(text string, maxChars int) [][]string {
	if maxChars <= 0 {
		maxChars = DefaultMaxCharsPerChunk
	}

	lines := strings.Split(text, "\n")
	out := make([][]string, len(lines))
	for i, line := range lines {
		out[i] = splitLine(line, maxChars)
	}
	return out
}

func splitLine(line string, maxChars int) []string {
	rest := []rune(line)
	if len(rest) < maxChars {
		return []string{line}
	}

	var chunks []string
	for len(rest) > 0 {
		chunk := rest[:min(maxChars, len(rest))]
		if len(rest) > maxChars {
			if cut := lastSpace(chunk); cut >= 0 {
				chunk = chunk[:cut]
			}
		}
		chunks = append(chunks, string(chunk))
		rest = trimLeftSpace(rest[len(chunk):])
	}
	return chunks
}

func lastSpace(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if unicode.IsSpace(rs[i]) {
			return i
		}
	}
	return -1
}

func trimLeftSpace(rs []rune) []rune {
	for len(rs) > 0 && unicode.IsSpace(rs[0]) {
		rs = rs[1:]
	}
	return rs
}
