// Package cache memoizes provider responses across runs.
//
// A Cache wraps a Store (SQLite by default, Redis or in-memory on request) and
// guarantees at most one in-flight computation per key through singleflight.
// Entries expire after their TTL. A store that cannot be opened, or an entry
// that cannot be decoded, degrades to a cold cache instead of failing the run.
package cache
