package agent

import (
	"sort"
	"sync"
)

// Registry looks agents up by name.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewRegistry returns a Registry holding agents.
func NewRegistry(agents ...Agent) *Registry {
	r := &Registry{agents: make(map[string]Agent, len(agents))}
	for _, a := range agents {
		r.Register(a)
	}
	return r
}

// Register adds or replaces an agent.
func (r *Registry) Register(a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.Name()] = a
}

// Get returns the agent registered under name.
func (r *Registry) Get(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// Names returns the registered agent names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for n := range r.agents {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Suite is the standard set of agents wired to one Deps.
type Suite struct {
	Script   *ScriptAgent
	Editor   *EditorAgent
	Publish  *PublishAgent
	Pipeline *Pipeline
	Registry *Registry
}

// NewSuite builds the script, editor and publish agents, a pipeline over
// them, and a registry of the three agents.
func NewSuite(deps Deps) *Suite {
	s := &Suite{
		Script:  NewScriptAgent(deps),
		Editor:  NewEditorAgent(deps),
		Publish: NewPublishAgent(deps),
	}
	s.Pipeline = NewPipeline(deps, s.Script, s.Editor, s.Publish)
	s.Registry = NewRegistry(s.Script, s.Editor, s.Publish)
	return s
}
