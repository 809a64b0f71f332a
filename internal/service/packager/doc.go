// Package packager prepares a firmware release for the updater.
//
// It hashes the release binaries, writes the release manifest and records the
// update folder in the node settings.
package packager
