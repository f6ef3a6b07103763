package addic7ed

import (
	"strings"

	"subfetch/internal/language"
)

var supportedLanguages = []string{
	"ar", "az", "bn", "bs", "bg", "ca", "cs", "da", "de", "el", "en", "eu", "fa",
	"fi", "fr", "gl", "he", "hr", "hu", "hy", "id", "it", "ja", "ko", "mk", "ms",
	"nl", "no", "pl", "pt", "ro", "ru", "sk", "sl", "es", "sq", "sr", "sv", "th",
	"tr", "uk", "vi", "zh",
}

// site spellings the language table does not know
var siteLanguageNames = map[string]string{
	"azerbaijani": "az",
	"bengali":     "bn",
	"bosnian":     "bs",
	"catala":      "ca",
	"català":      "ca",
	"euskera":     "eu",
	"galego":      "gl",
	"galician":    "gl",
}

// parseLanguage maps a site language label such as "Portuguese (Brazilian)"
// to an alpha2 code. Regional qualifiers are dropped.
func parseLanguage(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if i := strings.Index(label, "("); i >= 0 {
		label = strings.TrimSpace(label[:i])
	}
	if label == "" {
		return ""
	}
	if code, ok := siteLanguageNames[label]; ok {
		return code
	}
	return language.ToISO2(label)
}
