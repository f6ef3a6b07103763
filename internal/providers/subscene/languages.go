package subscene

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

type siteLanguage struct {
	code string
	// filter is the site's id for the LanguageFilter cookie; 0 when the site
	// has none.
	filter int
}

// siteLanguages maps the language names the site prints to codes.
var siteLanguages = map[string]siteLanguage{
	"albanian":      {"sq", 1},
	"arabic":        {"ar", 2},
	"armenian":      {"hy", 73},
	"azerbaijani":   {"az", 55},
	"basque":        {"eu", 74},
	"belarusian":    {"be", 68},
	"bengali":       {"bn", 54},
	"bosnian":       {"bs", 60},
	"bulgarian":     {"bg", 5},
	"burmese":       {"my", 61},
	"catalan":       {"ca", 49},
	"croatian":      {"hr", 8},
	"czech":         {"cs", 9},
	"danish":        {"da", 10},
	"dutch":         {"nl", 11},
	"english":       {"en", 13},
	"esperanto":     {"eo", 47},
	"estonian":      {"et", 16},
	"farsi/persian": {"fa", 46},
	"finnish":       {"fi", 17},
	"french":        {"fr", 18},
	"georgian":      {"ka", 62},
	"german":        {"de", 19},
	"greek":         {"el", 21},
	"greenlandic":   {"kl", 57},
	"hebrew":        {"he", 22},
	"hindi":         {"hi", 51},
	"hungarian":     {"hu", 23},
	"icelandic":     {"is", 25},
	"indonesian":    {"id", 44},
	"italian":       {"it", 26},
	"japanese":      {"ja", 27},
	"korean":        {"ko", 28},
	"kurdish":       {"ku", 52},
	"latvian":       {"lv", 29},
	"lithuanian":    {"lt", 43},
	"macedonian":    {"mk", 48},
	"malay":         {"ms", 50},
	"malayalam":     {"ml", 64},
	"mongolian":     {"mn", 72},
	"norwegian":     {"no", 30},
	"pashto":        {"ps", 67},
	"polish":        {"pl", 31},
	"portuguese":    {"pt", 32},
	"punjabi":       {"pa", 66},
	"romanian":      {"ro", 33},
	"russian":       {"ru", 34},
	"serbian":       {"sr", 35},
	"sinhala":       {"si", 58},
	"slovak":        {"sk", 36},
	"slovenian":     {"sl", 37},
	"somali":        {"so", 70},
	"spanish":       {"es", 38},
	"sundanese":     {"su", 0},
	"swahili":       {"sw", 0},
	"swedish":       {"sv", 39},
	"tagalog":       {"tl", 53},
	"tamil":         {"ta", 59},
	"telugu":        {"te", 63},
	"thai":          {"th", 40},
	"turkish":       {"tr", 41},
	"ukrainian":     {"uk", 56},
	"urdu":          {"ur", 42},
	"vietnamese":    {"vi", 45},
	"yoruba":        {"yo", 71},
}

var supportedLanguages = func() []string {
	codes := make([]string, 0, len(siteLanguages))
	for lang := range maps.Values(siteLanguages) {
		codes = append(codes, lang.code)
	}
	slices.Sort(codes)
	return slices.Compact(codes)
}()

// parseLanguage maps a site label to a code. Mixed and unlisted labels such
// as "Big 5 code" or "Dutch/ English" yield "".
func parseLanguage(label string) string {
	return siteLanguages[strings.ToLower(strings.TrimSpace(label))].code
}

// filterCookie restricts listings to langs and drops the hearing-impaired
// and foreign-only preferences.
func filterCookie(langs []string) string {
	var ids []string
	for _, name := range slices.Sorted(maps.Keys(siteLanguages)) {
		lang := siteLanguages[name]
		if lang.filter > 0 && slices.Contains(langs, lang.code) {
			ids = append(ids, strconv.Itoa(lang.filter))
		}
	}
	return "LanguageFilter=" + strings.Join(ids, ",") + "; HearingImpaired=2; ForeignOnly=False"
}
