// Package connectivity answers one question for the session state machine:
// does the node have a usable network, meaning a global address and a
// default route. Missing connectivity is a normal state, not an error.
package connectivity
