// Package mcp contains the wire-level metadata model shared by the rest of
// the framework: tool, resource and prompt descriptors, the simplified input
// schema shape consumed by schema-dialect-strict validators, content blocks
// and call results, and logging levels.
//
// The types here are plain data. Behavior (schema generation, argument
// binding, dispatch) lives in the fastmcp package.
package mcp
