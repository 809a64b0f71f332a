// Package config defines the node settings and helpers to load, validate
// and save them in YAML format.
//
// Defaults reproduce the factory firmware: broker fd00::1:1883, publish
// topic "humidity", control topic "humidity_control" and a 5 second
// publish interval.
package config
