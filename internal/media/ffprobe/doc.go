// Package ffprobe wraps ffprobe JSON output.
//
// Inspect runs the binary and decodes streams and container format. Result
// helpers expose what subtitle acquisition needs from a container: embedded
// subtitle languages and the video resolution.
package ffprobe
