package source

// Manager is the BCHIR-wide registry of source file names, analogous to
// the teacher's FileSet but without byte-offset tracking: BCHIR positions
// already carry an explicit line/column (spec §3.3), there is no
// lexer/scanner in this module that would need to recover them from a flat
// byte offset.
type Manager struct {
	names []string
	ids   map[string]FileID
}

// NewManager creates an empty Manager. Index 0 is reserved for NoFile.
func NewManager() *Manager {
	return &Manager{names: []string{""}, ids: map[string]FileID{}}
}

// FileID returns the id for name, registering it if not already known.
func (m *Manager) FileID(name string) FileID {
	if id, ok := m.ids[name]; ok {
		return id
	}
	id := FileID(len(m.names))
	m.names = append(m.names, name)
	m.ids[name] = id
	return id
}

// Name returns the file name registered under id, or "" for NoFile or an
// unknown id.
func (m *Manager) Name(id FileID) string {
	if int(id) >= len(m.names) {
		return ""
	}
	return m.names[id]
}
