// Package device contains the core domain types of the wellness node.
//
// It defines the session State enum, the Actuator (ON/OFF output plus the
// manual-mode flag), the simulated Humidity quantity, remote command
// parsing and the status message format sent to the collector.
package device
