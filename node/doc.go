// Package node layers named endpoints over a mesh context. A Node retains
// its context for as long as it lives, so the native resources cannot be
// finalized underneath an endpoint. Publishers and subscriptions created
// from a node publish and receive JSON payloads on domain-scoped subjects.
package node
