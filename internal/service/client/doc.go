// Package client implements the wellness-ctl commands.
//
// It connects to a node's actuator endpoint, switches the humidifier or
// prints the node status.
package client
