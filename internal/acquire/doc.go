// Package acquire drives subtitle acquisition for a batch of videos.
//
// Each video moves through a fixed sequence of steps:
//
//   - local shortcut: a matching file in a cross-reference directory is moved
//     next to the video and no provider is contacted
//   - already satisfied: languages with a subtitle on disk are dropped
//   - embedded scan (advanced search only): languages embedded in the
//     container are dropped
//   - provider selection by video kind
//   - concurrent queries with per-provider timeouts, cached
//   - ranking, fetching with fallback to the next best candidate, placement
//
// Providers are constructed and initialized once per batch. A provider that
// turns out to be unavailable while downloading is dropped for the rest of
// the batch. The batch outcome is success when at least one subtitle was
// placed and neutral otherwise.
package acquire
