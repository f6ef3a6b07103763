// Package video describes the files subtitles are acquired for.
//
// Identity carries the attributes guessed from a file name (series, season,
// episode, title, year, release tokens) plus content hashes computed from the
// file itself. Guess performs the name parsing; FromFile combines it with a
// stat and the hash algorithms providers ask for. Sample clips and files with
// unknown extensions are filtered with IsSample and IsVideoFile.
package video
