package fastmcp

// ToolDef is one tool contributed by a Toolset: the registration name, the
// handler function, and the same options RegisterTool accepts.
type ToolDef struct {
	Name    string
	Fn      any
	Options []ToolOption
}

// Toolset is a named collection of tools that can be attached to a server in
// one call. The bundled toolsets (todo, memory, planner, bash, file) all
// implement it.
type Toolset interface {
	Name() string
	Tools() []ToolDef
}

// AddToolset registers every tool the set contributes. The first failed
// registration aborts with its *ScanError.
func (s *Server) AddToolset(ts Toolset) error {
	for _, def := range ts.Tools() {
		if err := s.RegisterTool(def.Name, def.Fn, def.Options...); err != nil {
			return err
		}
	}
	return nil
}
