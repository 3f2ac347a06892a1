// Package ber owns the BER subset used on the Ember+ wire.
//
// Ownership boundary:
// - single-byte tags, definite lengths
// - universal primitives (integer, boolean, utf8, octets, relative oid, real)
// - sequence-scoped sub-readers and a back-patching writer
package ber
