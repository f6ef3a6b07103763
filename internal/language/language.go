package language

import (
	"slices"
	"strings"

	xlanguage "golang.org/x/text/language"
)

// Language is one language in the code systems subtitle sites use.
type Language struct {
	Alpha2  string // ISO 639-1, empty when the language has none
	Alpha3  string // ISO 639-2/T
	Alpha3B string // ISO 639-2/B, equal to Alpha3 for most languages
}

// table lists languages whose bibliographic code or spelled-out names must be
// recognized in file names and provider listings. Each row is
// "alpha2 alpha3 alpha3b name...".
var table = []string{
	"en eng eng english",
	"es spa spa spanish castilian",
	"fr fra fre french",
	"de deu ger german",
	"it ita ita italian",
	"pt por por portuguese",
	"ja jpn jpn japanese",
	"ko kor kor korean",
	"zh zho chi chinese",
	"ru rus rus russian",
	"ar ara ara arabic",
	"hi hin hin hindi",
	"nl nld dut dutch flemish",
	"pl pol pol polish",
	"sv swe swe swedish",
	"da dan dan danish",
	"no nor nor norwegian",
	"fi fin fin finnish",
	"ro ron rum romanian",
	"tr tur tur turkish",
	"el ell gre greek",
	"cs ces cze czech",
	"hu hun hun hungarian",
	"he heb heb hebrew",
	"fa fas per persian farsi",
	"sr srp srp serbian",
	"hr hrv hrv croatian",
	"sk slk slo slovak",
	"sl slv slv slovenian",
	"bg bul bul bulgarian",
	"uk ukr ukr ukrainian",
	"id ind ind indonesian",
	"vi vie vie vietnamese",
	"th tha tha thai",
	"is isl ice icelandic",
	"mk mkd mac macedonian",
	"sq sqi alb albanian",
	"hy hye arm armenian",
	"ka kat geo georgian",
	"ms msa may malay",
	"eu eus baq basque",
	"cy cym wel welsh",
}

// known indexes every code and name in table.
var known = func() map[string]Language {
	index := make(map[string]Language, len(table)*4)
	for _, row := range table {
		fields := strings.Fields(row)
		lang := Language{Alpha2: fields[0], Alpha3: fields[1], Alpha3B: fields[2]}
		for _, key := range fields {
			index[key] = lang
		}
	}
	return index
}()

// Lookup resolves a 2-letter code, either 3-letter form, an English name, or
// a BCP 47 tag such as "pt-BR". Matching ignores case and surrounding space.
func Lookup(code string) (Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || code == "und" {
		return Language{}, false
	}
	if lang, ok := known[code]; ok {
		return lang, true
	}
	tag, err := xlanguage.Parse(code)
	if err != nil {
		return Language{}, false
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return Language{}, false
	}
	if lang, ok := known[base.String()]; ok {
		return lang, true
	}
	lang := Language{Alpha3: base.ISO3()}
	lang.Alpha3B = lang.Alpha3
	if s := base.String(); len(s) == 2 {
		lang.Alpha2 = s
	}
	return lang, true
}

// ToISO2 returns the ISO 639-1 code, or "" when there is none.
func ToISO2(code string) string {
	lang, _ := Lookup(code)
	return lang.Alpha2
}

// ToISO3 returns the ISO 639-2/T code, or "und" for unrecognized input.
func ToISO3(code string) string {
	if lang, ok := Lookup(code); ok {
		return lang.Alpha3
	}
	return "und"
}

// Forms lists the distinct codes a subtitle file name may use for the
// language, 2-letter first.
func Forms(code string) []string {
	lang, ok := Lookup(code)
	if !ok {
		return nil
	}
	var forms []string
	for _, form := range []string{lang.Alpha2, lang.Alpha3, lang.Alpha3B} {
		if form != "" && !slices.Contains(forms, form) {
			forms = append(forms, form)
		}
	}
	return forms
}

// tagKeys are the stream tag names containers use for a language, in
// preference order.
var tagKeys = []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"}

// ExtractFromTags returns the lowercased language value of stream metadata
// tags, or "" when no tag carries one.
func ExtractFromTags(tags map[string]string) string {
	for _, key := range tagKeys {
		value := strings.TrimSpace(strings.ReplaceAll(tags[key], "\x00", ""))
		if value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}

// NormalizeList maps languages to ISO 639-1 and drops duplicates, keeping the
// first occurrence. Codes without a 2-letter form are kept lowercased.
func NormalizeList(languages []string) []string {
	var out []string
	for _, code := range languages {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if alpha2 := ToISO2(code); alpha2 != "" {
			code = alpha2
		}
		if !slices.Contains(out, code) {
			out = append(out, code)
		}
	}
	return out
}
