// Package session drives the broker session of the node.
//
// The Manager is a table-driven state machine advanced once per control
// tick (INIT -> NET_OK -> CONNECTING -> SUBSCRIBED) and corrected by
// asynchronous transport events (CONNECTED, DISCONNECTED). Transitions
// are optimistic: the machine moves on as soon as a request is queued
// and relies on later transport events to fix its view.
package session
