// Package glow owns the Ember+ element tree and its BER encoding.
//
// Ownership boundary:
// - element variants (node, parameter, matrix, function, template, command)
// - qualified and numbered addressing, path lookup, tree branches
// - contents merge and per-element subscribers
// - matrix crosspoint validation and connection state
//
// The package holds no locks. Callers serialize mutations of one tree.
package glow
