// Package xref serves subtitles from local cross-reference directories.
//
// A Repository is scanned once per batch. Each subtitle file whose name
// guesses into a video identity becomes an Entry; the first video with an
// equal identity claims the entry and the file is moved next to the video,
// skipping every network provider for that video.
package xref
