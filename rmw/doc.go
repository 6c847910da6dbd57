// Package rmw is the middleware layer underneath a mesh context. It owns
// the native communication resources: the transport connection, the parsed
// process arguments, and the resolved domain id.
//
// A Handle is created by Init and moves through exactly three states:
// valid, shut down, finalized. IsValid is safe to call in every state.
// Shutdown and Finalize are NOT idempotent at this level; the context
// wrapper above serializes them and guarantees each runs at most once.
//
// The domain id partitions the graph: endpoints only exchange messages
// within one domain. Resolution precedence is explicit option, then the
// MESH_DOMAIN_ID environment variable, then domain 0.
package rmw
