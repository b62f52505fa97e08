package ytlocalize

import (
	"context"
	"sync"

	"ytlocalize/translate"
)

var (
	defaultOnce       sync.Once
	defaultTranslator *translate.Translator
)

// Translate translates text from source to target with the default MyMemory
// client. Emoji and ALL-CAPS words are preserved and chunks that cannot be
// translated are returned unchanged.
func Translate(ctx context.Context, text, source, target string) string {
	defaultOnce.Do(func() {
		defaultTranslator = translate.New(translate.Options{})
	})
	return defaultTranslator.Translate(ctx, text, source, target)
}

// NewTranslator creates a translator that sends email as the MyMemory contact,
// which raises the anonymous daily quota.
func NewTranslator(email string) *translate.Translator {
	return translate.New(translate.Options{ContactEmail: email})
}
