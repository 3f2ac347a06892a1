// Package consumer is the Ember+ client side: it connects to a provider,
// walks its tree on demand and keeps a local cache reconciled with every
// message the provider sends.
//
// Ember+ carries no request ids except for invocations, so directory and
// value requests complete when the provider next reports the requested
// element.
package consumer
