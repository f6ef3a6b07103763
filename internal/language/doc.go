// Package language maps language codes between the forms subtitle sites and
// containers use: ISO 639-1, ISO 639-2 terminology and bibliographic codes,
// English names, and BCP 47 tags.
//
// A built-in table covers languages whose bibliographic code differs or whose
// name appears in file names; everything else resolves through
// golang.org/x/text/language.
package language
