// Package actuator implements the gRPC transport for remote actuator control.
//
// The service uses protobuf well-known types as messages: SetStatus takes a
// Struct carrying a "status" field ("ON" or "OFF") and GetStatus returns the
// node snapshot as a Struct. The service is defined in
// api/wellness/v1/actuator.proto; ServiceDesc mirrors it without a protoc step.
package actuator
