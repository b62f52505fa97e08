// Package ytlocalize translates YouTube video titles and descriptions and
// publishes them as video localizations.
//
// Overview
//
// ytlocalize provides a high-level convenience function for free text and
// sub-packages for the full pipeline:
//
//   - Translate: Translate text with emoji and ALL-CAPS words preserved
//
// Quick Start
//
// Translate a title:
//
//	ctx := context.Background()
//	title := ytlocalize.Translate(ctx, "Le CRASH le plus fou 😱", "fr", "en")
//	fmt.Println(title)
//
// Translation never fails. Chunks that MyMemory refuses after retries are kept
// untranslated; use translate.Translator.TranslateDetailed to count them.
//
// Configuration
//
// The command line tool loads settings from multiple sources:
//
//  1. Environment variables (highest priority, a .env file is loaded first)
//  2. Config file (ytlocalize.yaml or ~/.config/ytlocalize/ytlocalize.yaml)
//  3. Default values (lowest priority)
//
// Environment variables:
//
//   - USER_EMAIL: Contact email sent to MyMemory
//   - TOKEN_JSON: Authorized user token, never written to disk
//   - CLIENT_SECRET_JSON: OAuth client secrets
//   - YTLOCALIZE_TARGET_LANGUAGES: Comma separated language codes
//   - YTLOCALIZE_MAX_CHARS: Characters per translation request
//   - YTLOCALIZE_MAX_ATTEMPTS: Requests per chunk when rate limited
//   - YTLOCALIZE_INITIAL_BACKOFF: First backoff after a 429
//
// Error Handling
//
// Operations that can fail return errors that support errors.Is and errors.As:
//
//	if errors.Is(err, ytlocalize.ErrQuotaExceeded) {
//		fmt.Println("YouTube quota exhausted, try again tomorrow")
//	}
//
//	var apiErr *ytlocalize.APIError
//	if errors.As(err, &apiErr) {
//		fmt.Printf("%s failed: %d %s\n", apiErr.Op, apiErr.Code, apiErr.Reason)
//	}
//
// Advanced Usage
//
// For more control, use the sub-packages directly:
//
//   - translate: Token protection, chunk splitting and the MyMemory client
//   - youtube: Data API access to uploads and localizations
//   - localize: Selection and localization of videos
//   - auth: OAuth authorization and token storage
//   - config: Configuration management
//   - storage: Run history
//   - http: Rate limited HTTP client with retry and circuit breaker
//
// Example using the translate package directly:
//
//	t := translate.New(translate.Options{
//		ContactEmail:     "me@example.com",
//		MaxCharsPerChunk: 480,
//	})
//	res := t.TranslateDetailed(ctx, description, "fr", "de")
//	if res.Fallbacks > 0 {
//		log.Printf("%d chunks left untranslated", res.Fallbacks)
//	}
package ytlocalize
