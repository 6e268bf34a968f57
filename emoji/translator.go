package emoji

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultEscapeToken       = ":B:"
	DefaultEscapeReplacement = ":b:"
	DefaultMaxRetries        = 2
)

// Configuration options for a Translator
type TranslatorConfig struct {
	// Optional. Upper-case text passed through as EscapeReplacement
	// instead of being translated. Defaults to ":B:".
	EscapeToken string
	// Optional. Defaults to ":b:".
	EscapeReplacement string
	// Optional. How many times a position is redrawn when it would repeat an
	// emoji already used in the message. Defaults to 2, negative disables.
	MaxRetries int
}

// Rewrites text one character at a time with glyphs from a Dispenser.
type Translator struct {
	dispenser   *Dispenser
	escape      []rune
	replacement string
	maxRetries  int
}

func NewTranslator(dispenser *Dispenser, config TranslatorConfig) *Translator {
	if config.EscapeToken == "" {
		config.EscapeToken = DefaultEscapeToken
	}
	if config.EscapeReplacement == "" {
		config.EscapeReplacement = DefaultEscapeReplacement
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	return &Translator{
		dispenser:   dispenser,
		escape:      []rune(config.EscapeToken),
		replacement: config.EscapeReplacement,
		maxRetries:  config.MaxRetries,
	}
}

// Loads the pool at source and builds a Translator with a randomly seeded
// Dispenser.
func Load(ctx context.Context, source string, client *http.Client, config TranslatorConfig) (*Translator, error) {
	pool, err := LoadPool(ctx, source, client)
	if err != nil {
		return nil, err
	}
	return NewTranslator(NewDispenser(pool, nil), config), nil
}

// Translates input. Lower-case letters share the pool entry of their
// upper-case form.
func (t *Translator) Translate(input string) string {
	text := []rune(cases.Upper(language.Und).String(input))

	var out strings.Builder
	recent := make(map[string]struct{})
	retries := 0

	for i := 0; i < len(text); {
		if t.escapeAt(text, i) {
			out.WriteString(t.replacement)
			i += len(t.escape)
			continue
		}

		glyph := t.dispenser.Draw(text[i])
		if isEmojiShaped(glyph) {
			if _, seen := recent[glyph]; seen && retries < t.maxRetries {
				retries++
				continue
			}
			recent[glyph] = struct{}{}
		}

		retries = 0
		out.WriteString(glyph)
		i++
	}
	return out.String()
}

func (t *Translator) escapeAt(text []rune, i int) bool {
	if i+len(t.escape) > len(text) {
		return false
	}
	for j, r := range t.escape {
		if text[i+j] != r {
			return false
		}
	}
	return true
}

// Reports whether glyph looks like ":name:".
func isEmojiShaped(glyph string) bool {
	return len(glyph) >= 2 && strings.HasPrefix(glyph, ":") && strings.HasSuffix(glyph, ":")
}
