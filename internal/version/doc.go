// Package version exposes build metadata of the node binaries.
//
// Version, Commit and BuildTime are injected with -ldflags at release time.
// The updater parses the Full form to learn the installed firmware version.
package version
