// Package trigger turns local operator input into manual-override events.
//
// A physical push button is read through the GPIO character device, and
// SIGUSR1 acts as a software button on hosts without one.
package trigger
