// Package subtitles decides which provider subtitle best fits a video.
//
// ComputeMatches compares a Candidate against a video.Identity and yields the
// set of agreeing attributes. ComputeScore weighs that set with a fixed
// per-kind table, collapsing equivalent matches and short-circuiting on a
// content-hash match. FetchMode turns the hearing-impaired preference into a
// filter or score adjustment, and Rank applies all of it to a result list.
//
// The package also validates downloaded SubRip content, converts between
// character encodings, and tidies files before they are written to disk.
package subtitles
