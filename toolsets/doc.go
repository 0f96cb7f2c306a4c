// Package toolsets bundles ready-made tool collections that attach to a
// server in one call: task tracking, a structured memory store, hierarchical
// planning, shell execution and sandboxed file access. Each collection
// implements fastmcp.Toolset and registers plain handler functions through
// the same declarative API user code uses.
package toolsets
