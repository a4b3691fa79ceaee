package di

import "sort"

// moduleState tracks the lifecycle of one module id.
type moduleState struct {
	id        string
	active    bool
	teardowns int
	keys      map[Key]struct{}
}

// store holds registrations keyed by capability and scope. It is not safe
// for concurrent use; the container only touches it on its executor.
type store struct {
	entries map[Key]map[Scope]*registration
	modules map[string]*moduleState
}

func newStore() *store {
	return &store{
		entries: make(map[Key]map[Scope]*registration),
		modules: make(map[string]*moduleState),
	}
}

// put stores reg under (key, scope) and returns the registration it replaced.
func (s *store) put(reg *registration) *registration {
	byScope, ok := s.entries[reg.key]
	if !ok {
		byScope = make(map[Scope]*registration, 1)
		s.entries[reg.key] = byScope
	}
	prev := byScope[reg.scope]
	byScope[reg.scope] = reg

	if prev != nil && prev.scope == ScopeModule && prev.module != reg.module {
		if m, ok := s.modules[prev.module]; ok {
			delete(m.keys, prev.key)
		}
	}
	if reg.scope == ScopeModule {
		m := s.ensureModule(reg.module)
		m.keys[reg.key] = struct{}{}
		m.active = true
	}
	return prev
}

func (s *store) ensureModule(id string) *moduleState {
	m, ok := s.modules[id]
	if !ok {
		m = &moduleState{id: id, keys: make(map[Key]struct{})}
		s.modules[id] = m
	}
	return m
}

// lookup returns the winning registration for key in lookup order.
func (s *store) lookup(key Key) (*registration, bool) {
	byScope, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	for _, scope := range lookupOrder {
		if reg, ok := byScope[scope]; ok {
			return reg, true
		}
	}
	return nil, false
}

func (s *store) lookupScoped(key Key, scope Scope) (*registration, bool) {
	reg, ok := s.entries[key][scope]
	return reg, ok
}

func (s *store) module(id string) (*moduleState, bool) {
	m, ok := s.modules[id]
	return m, ok
}

// moduleActive reports whether the module owning reg is active and has not
// been torn down since reg was cached. Registrations outside module scope
// are always considered active.
func (s *store) moduleActive(reg *registration) bool {
	if reg.scope != ScopeModule {
		return true
	}
	m, ok := s.modules[reg.module]
	return ok && m.active && reg.generation == m.teardowns
}

func (s *store) moduleRegistrations(id string) []*registration {
	m, ok := s.modules[id]
	if !ok {
		return nil
	}
	regs := make([]*registration, 0, len(m.keys))
	for key := range m.keys {
		if reg, ok := s.entries[key][ScopeModule]; ok && reg.module == id {
			regs = append(regs, reg)
		}
	}
	return regs
}

// all returns every registration ordered by key, then lookup order.
func (s *store) all() []*registration {
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var regs []*registration
	for _, k := range keys {
		for _, scope := range lookupOrder {
			if reg, ok := s.entries[k][scope]; ok {
				regs = append(regs, reg)
			}
		}
	}
	return regs
}

func (s *store) moduleList() []ModuleInfo {
	out := make([]ModuleInfo, 0, len(s.modules))
	for _, m := range s.modules {
		out = append(out, ModuleInfo{
			ID:            m.id,
			Active:        m.active,
			Registrations: len(m.keys),
			Teardowns:     m.teardowns,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *store) len() int {
	n := 0
	for _, byScope := range s.entries {
		n += len(byScope)
	}
	return n
}
