// Package common holds helpers shared by the node control commands.
//
// It wraps the ActuatorService client with call timeouts and detects the
// operator (username@hostname) that the node records for every command.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
