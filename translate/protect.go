package translate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind identifies what a protected span holds.
type TokenKind int

const (
	// EmojiToken is a run of emoji, restored verbatim.
	EmojiToken TokenKind = iota
	// CapsToken is an ALL-CAPS word, translated separately and restored uppercased.
	CapsToken
)

// String returns the placeholder label for the kind.
func (k TokenKind) String() string {
	if k == EmojiToken {
		return "EMOJI"
	}
	return "CAPS"
}

// Span is one protected token located in the original text.
type Span struct {
	// Start and End are byte offsets into the original text.
	Start, End int
	Kind       TokenKind
	// Index is the token's position within its kind's sequence.
	Index int
	Token string
}

// Placeholder returns the marker substituted for the span.
func (s Span) Placeholder() string {
	return placeholder(s.Kind, s.Index)
}

func placeholder(kind TokenKind, index int) string {
	return fmt.Sprintf("__%s_%d__", kind, index)
}

// ProtectedText is text with emoji and ALL-CAPS words swapped for placeholders.
type ProtectedText struct {
	// Text carries one placeholder per entry of Emoji and Caps.
	Text string
	// Emoji holds emoji runs in order of appearance.
	Emoji []string
	// Caps holds ALL-CAPS words in order of appearance.
	Caps []string
	// Spans lists every protected token in positional order.
	Spans []Span
}

// Protect extracts emoji runs and ALL-CAPS words from text in a single scan
// and replaces each match with its own placeholder. Identical tokens at
// different positions get distinct placeholders.
func Protect(text string) ProtectedText {
	if text == "" {
		return ProtectedText{}
	}

	var pt ProtectedText
	prev := rune(-1)

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])

		if isEmoji(r) {
			end := i + size
			last := r
			for end < len(text) {
				next, n := utf8.DecodeRuneInString(text[end:])
				if !continuesEmoji(next) {
					break
				}
				last = next
				end += n
			}
			pt.add(EmojiToken, text, i, end)
			prev = last
			i = end
			continue
		}

		if isUpperASCII(r) {
			end := i
			for end < len(text) && isUpperASCII(rune(text[end])) {
				end++
			}
			if end-i >= 2 && !isWordRune(prev) && !isWordRune(runeAt(text, end)) {
				pt.add(CapsToken, text, i, end)
			}
			prev = rune(text[end-1])
			i = end
			continue
		}

		prev = r
		i += size
	}

	pt.Text = pt.substitute(text)
	return pt
}

func (pt *ProtectedText) add(kind TokenKind, text string, start, end int) {
	token := text[start:end]
	span := Span{Start: start, End: end, Kind: kind, Token: token}
	if kind == EmojiToken {
		span.Index = len(pt.Emoji)
		pt.Emoji = append(pt.Emoji, token)
	} else {
		span.Index = len(pt.Caps)
		pt.Caps = append(pt.Caps, token)
	}
	pt.Spans = append(pt.Spans, span)
}

// substitute rebuilds text with every span replaced by its placeholder.
func (pt *ProtectedText) substitute(text string) string {
	if len(pt.Spans) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, s := range pt.Spans {
		b.WriteString(text[pos:s.Start])
		b.WriteString(s.Placeholder())
		pos = s.End
	}
	b.WriteString(text[pos:])
	return b.String()
}

var placeholderPattern = regexp.MustCompile(`__(EMOJI|CAPS)_(\d+)__`)

// Restore puts protected tokens back into translated text. The first
// occurrence of each emoji placeholder becomes the original emoji; the first
// occurrence of each caps placeholder becomes the matching entry of caps,
// uppercased. A nil caps restores the original words. Placeholders the
// translation dropped are ignored and unknown ones are left as is.
func Restore(pt ProtectedText, translated string, caps []string) string {
	if len(pt.Emoji) == 0 && len(pt.Caps) == 0 {
		return translated
	}
	if caps == nil {
		caps = pt.Caps
	}

	usedEmoji := make([]bool, len(pt.Emoji))
	usedCaps := make([]bool, len(caps))

	return placeholderPattern.ReplaceAllStringFunc(translated, func(m string) string {
		sub := placeholderPattern.FindStringSubmatch(m)
		idx, err := strconv.Atoi(sub[2])
		if err != nil {
			return m
		}

		switch sub[1] {
		case "EMOJI":
			if idx < len(pt.Emoji) && !usedEmoji[idx] {
				usedEmoji[idx] = true
				return pt.Emoji[idx]
			}
		case "CAPS":
			if idx < len(caps) && !usedCaps[idx] {
				usedCaps[idx] = true
				return strings.ToUpper(caps[idx])
			}
		}
		return m
	})
}

func isUpperASCII(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

// isWordRune matches the word characters that bound an ALL-CAPS word.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// runeAt decodes the rune starting at byte offset i, or -1 past the end.
func runeAt(s string, i int) rune {
	if i >= len(s) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return r
}
