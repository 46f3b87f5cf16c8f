package transcribe

import (
	"strings"

	"golang.org/x/text/language"
)

// Display-name forms providers sometimes hand back in metadata.
var languageWords = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"dutch":      "nl",
	"russian":    "ru",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"arabic":     "ar",
	"hindi":      "hi",
	"turkish":    "tr",
	"polish":     "pl",
	"ukrainian":  "uk",
}

// NormalizeLanguage canonicalizes a language hint to its ISO 639-1 base tag
// ("English", "en-US", and "eng" all become "en"). Unrecognized hints return
// the empty string so providers run autodetection.
func NormalizeLanguage(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return ""
	}
	if code, ok := languageWords[strings.ToLower(hint)]; ok {
		return code
	}
	tag, err := language.Parse(hint)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	return base.String()
}
