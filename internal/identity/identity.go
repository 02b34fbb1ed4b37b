// Package identity defines the caller token shared by the registry, the
// notes store and the backend.
package identity

import "strings"

// Identity is an opaque, comparable token for an authenticated caller.
// Kōwhai uses the user UUID from the user config.
type Identity string

// Anonymous is the reserved identity of an unauthenticated caller.
// The zero value is treated the same way.
const Anonymous Identity = "anonymous"

// IsAnonymous reports whether id is the anonymous identity or empty.
func (id Identity) IsAnonymous() bool {
	return strings.TrimSpace(string(id)) == "" || id == Anonymous
}

func (id Identity) String() string {
	return string(id)
}
