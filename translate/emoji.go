package translate

import "unicode"

// emojiTable lists the pictograph and symbol blocks treated as emoji.
var emojiTable = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x24c2, Hi: 0x24ff, Stride: 1}, // enclosed alphanumerics
		{Lo: 0x25a0, Hi: 0x25ff, Stride: 1}, // geometric shapes
		{Lo: 0x2600, Hi: 0x26ff, Stride: 1}, // misc symbols
		{Lo: 0x2702, Hi: 0x27b0, Stride: 1}, // dingbats
		{Lo: 0x2b00, Hi: 0x2bff, Stride: 1}, // misc symbols and arrows
		{Lo: 0x3030, Hi: 0x3030, Stride: 1},
		{Lo: 0x303d, Hi: 0x303d, Stride: 1},
		{Lo: 0x3297, Hi: 0x3299, Stride: 2},
	},
	R32: []unicode.Range32{
		{Lo: 0x1f100, Hi: 0x1f251, Stride: 1}, // enclosed supplements, regional indicators
		{Lo: 0x1f300, Hi: 0x1f5ff, Stride: 1}, // symbols & pictographs
		{Lo: 0x1f600, Hi: 0x1f64f, Stride: 1}, // emoticons
		{Lo: 0x1f680, Hi: 0x1f6ff, Stride: 1}, // transport & map
		{Lo: 0x1f700, Hi: 0x1f77f, Stride: 1}, // alchemical
		{Lo: 0x1f780, Hi: 0x1f7ff, Stride: 1}, // geometric shapes extended
		{Lo: 0x1f800, Hi: 0x1f8ff, Stride: 1}, // supplemental arrows-C
		{Lo: 0x1f900, Hi: 0x1f9ff, Stride: 1}, // supplemental symbols & pictographs
		{Lo: 0x1fa00, Hi: 0x1fa6f, Stride: 1}, // chess symbols
		{Lo: 0x1fa70, Hi: 0x1faff, Stride: 1}, // symbols & pictographs extended-A
	},
}

const (
	zeroWidthJoiner   = '\u200d'
	variationSelector = '\ufe0f'
)

// isEmoji reports whether r can start an emoji run.
func isEmoji(r rune) bool {
	return unicode.Is(emojiTable, r)
}

// continuesEmoji reports whether r extends an emoji run already started.
func continuesEmoji(r rune) bool {
	return r == zeroWidthJoiner || r == variationSelector || isEmoji(r)
}
