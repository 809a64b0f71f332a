// Package node runs the control loop of the wellness node.
//
// Controller holds the actuator and humidity state and performs one
// control tick at a time: advance the session, update the simulated
// humidity, apply a pending manual toggle and publish a status message
// while online. Loop feeds the Controller from a single event queue
// (timer ticks, local triggers, transport events, remote commands) so
// events are handled strictly one after another. Run wires the loop to
// the MQTT transport, the gRPC actuator endpoint and the local triggers.
package node
