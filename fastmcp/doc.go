// Package fastmcp assembles a compliant MCP server from plain Go functions.
//
// A developer registers tools, resources and prompts on a Server with a small
// declarative builder; the framework derives a machine-checkable input schema
// from each handler's signature and parameter metadata, binds untyped request
// arguments to typed positional parameters, runs an ordered pre/post hook
// chain around the handler, and normalizes the return value into a result
// envelope. Synchronous and asynchronous handlers are unified behind a
// future-style dispatch contract: Dispatch always returns a *Call that
// resolves to a DispatchResult, never an unhandled error.
//
// Registration is the scan phase: malformed registrations (unmappable
// parameter types, duplicate names, bad icon sources) fail immediately with a
// *ScanError so a broken server never starts. Descriptors and schemas are
// immutable once dispatch begins and are safe for concurrent reads.
//
// Transport is out of scope here; the stdio package adapts a built Server to
// the official MCP SDK.
package fastmcp
