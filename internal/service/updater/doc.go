// Package updater installs firmware releases published by the packager.
//
// It fetches the release manifest from the configured update folder, compares
// versions and checksums with the installed binaries, stops the running node,
// replaces files with checksum verification and restarts the node.
package updater
