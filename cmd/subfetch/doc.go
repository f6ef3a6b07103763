// Package main hosts the subfetch CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration, builds the logger and the
// provider cache, and hands video paths to the acquire package. Helper
// commands expose the filename guesser, the content hashes, the provider
// registry, and cache maintenance so a configuration can be checked without
// running a batch.
//
// Post-processing hosts such as NZBGet pass --exit-code to receive 93 when a
// subtitle was placed and 95 when nothing was fetched.
package main
