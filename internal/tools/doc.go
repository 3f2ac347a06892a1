// Package tools binds host commands to Ember+ functions.
//
// A bound function runs its command with the invocation arguments appended
// and answers with the trimmed stdout and the exit code.
package tools
