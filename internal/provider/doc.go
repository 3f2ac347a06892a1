// Package provider serves a live Glow tree to Ember+ consumers.
//
// Ownership boundary:
// - tree mutation under one server lock
// - request dispatch: directory, subscribe, invoke, set value, matrix connect
// - subscriber fan-out and change events
// - TCP session service and HTTP admin surface
package provider
