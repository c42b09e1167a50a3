// Package tool defines the Kind taxonomy, Tool interface, registry and
// policy types around the ToolExecutor (spec §4.3): every built-in and
// MCP-proxied tool implements Tool. The ToolExecutor keeps its own tool
// map rather than a Registry and does not apply a Policy; Registry and
// Policy (allow/deny and confirmation by Kind) are available to callers.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Kind classifies a tool's effect — drives automatic policy decisions.
type Kind string

const (
	KindRead        Kind = "read"        // read_file, list_dir, search_files...
	KindEdit        Kind = "edit"        // write_file, edit_file...
	KindExecute     Kind = "execute"     // run_terminal...
	KindDelete      Kind = "delete"      // destructive filesystem ops
	KindSearch      Kind = "search"      // search_files, web search
	KindFetch       Kind = "fetch"       // network fetch
	KindThink       Kind = "think"       // pure reasoning, no side effects
	KindCommunicate Kind = "communicate" // interaction with the user
)

// MutatorKinds require confirmation under AskMode.
var MutatorKinds = map[Kind]bool{
	KindEdit:    true,
	KindDelete:  true,
	KindExecute: true,
}

// SafeKinds are auto-approved even under AskMode.
var SafeKinds = map[Kind]bool{
	KindRead:   true,
	KindSearch: true,
	KindThink:  true,
}

// Tool is the uniform abstraction every built-in and MCP-proxied callable
// implements.
type Tool interface {
	Name() string
	Description() string
	Kind() Kind
	Schema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (*Result, error)
}

// Result is a tool's execution outcome.
type Result struct {
	Output   string                 // terse result returned to the model
	Display  string                 // optional rich rendering for a UI consumer
	Success  bool
	Metadata map[string]interface{}
	Error    string
}

// DisplayOrOutput returns Display if set, else falls back to Output.
func (r *Result) DisplayOrOutput() string {
	if r.Display != "" {
		return r.Display
	}
	return r.Output
}

// Definition is the shape handed to the model (name/description/schema).
type Definition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Registry holds the set of tools available for dispatch.
type Registry interface {
	Register(tool Tool) error
	Unregister(name string) error
	Get(name string) (Tool, bool)
	List() []Definition
	Has(name string) bool
}

// InMemoryRegistry is a mutex-guarded, process-local Registry.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		tools: make(map[string]Tool),
	}
}

func (r *InMemoryRegistry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}

	r.tools[name] = tool
	return nil
}

func (r *InMemoryRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		return fmt.Errorf("tool %s not found", name)
	}

	delete(r.tools, name)
	return nil
}

func (r *InMemoryRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

func (r *InMemoryRegistry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, Definition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Schema(),
		})
	}
	return defs
}

func (r *InMemoryRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tools[name]
	return exists
}

// ExecutionContext names where a tool actually runs.
type ExecutionContext int

const (
	ExecContextGateway  ExecutionContext = iota // in the host process itself
	ExecContextSandbox                          // inside a ProcessSandbox
	ExecContextRemote                           // on a remote worker node
)

func (c ExecutionContext) String() string {
	switch c {
	case ExecContextGateway:
		return "gateway"
	case ExecContextSandbox:
		return "sandbox"
	case ExecContextRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Executor runs a Tool under a given execution context.
type Executor interface {
	Execute(ctx context.Context, tool Tool, args map[string]interface{}) (*Result, error)
	SetContext(execCtx ExecutionContext)
}

// Policy gates which tools a session may use and whether they need
// confirmation before running.
type Policy struct {
	Profile     string   // named preset: minimal, coding, messaging, full
	AllowList   []string // explicit allow list; empty means allow-by-default
	DenyList    []string
	AskMode     bool // require confirmation before mutating calls
	MaxExecTime int  // seconds
}

// IsAllowed reports whether toolName passes the deny/allow lists.
func (p *Policy) IsAllowed(toolName string) bool {
	for _, denied := range p.DenyList {
		if denied == toolName {
			return false
		}
	}

	if len(p.AllowList) == 0 {
		return true
	}

	for _, allowed := range p.AllowList {
		if allowed == toolName {
			return true
		}
	}

	return false
}

// NeedsConfirmation reports whether kind requires confirmation under
// AskMode — SafeKinds always pass, MutatorKinds always need it.
func (p *Policy) NeedsConfirmation(kind Kind) bool {
	if !p.AskMode {
		return false
	}
	if SafeKinds[kind] {
		return false
	}
	return MutatorKinds[kind]
}

// PolicyEnforcer applies a Policy to a Registry's tool list.
type PolicyEnforcer struct {
	policy   *Policy
	registry Registry
}

func NewPolicyEnforcer(policy *Policy, registry Registry) *PolicyEnforcer {
	return &PolicyEnforcer{
		policy:   policy,
		registry: registry,
	}
}

// FilteredList returns the registry's tools the policy allows.
func (e *PolicyEnforcer) FilteredList() []Definition {
	all := e.registry.List()
	filtered := make([]Definition, 0)

	for _, def := range all {
		if e.policy.IsAllowed(def.Name) {
			filtered = append(filtered, def)
		}
	}

	return filtered
}

func (e *PolicyEnforcer) CanExecute(toolName string) bool {
	return e.policy.IsAllowed(toolName)
}

func (e *PolicyEnforcer) NeedsApproval() bool {
	return e.policy.AskMode
}

func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"output":   r.Output,
		"display":  r.Display,
		"success":  r.Success,
		"metadata": r.Metadata,
		"error":    r.Error,
	})
}
