// Package mqtt implements session.Transport on top of the Eclipse Paho MQTT client.
//
// Requests are queued to a single worker goroutine so callers never block on
// the network; outcomes are reported back as session events.
package mqtt
