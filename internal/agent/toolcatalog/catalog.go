// Package toolcatalog is the tool registry the agent orchestrator drives
// (§4.D). Grounded on goa-ai's runtime/agent/tools.ToolSpec — name,
// description, typed schemas, idempotency metadata — simplified to this
// domain's fixed catalogue (outbound messaging, CRM, calendar, persistence,
// media analysis, utility) and implemented as plain functions rather than
// codegen'd codecs, since the catalogue here is hand-authored, not
// generated from a design DSL.
package toolcatalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// IdempotencyClass mirrors goa-ai's tools.IdempotencyScope concept,
// restated as the three-way classification §4.D's retry policy needs.
type IdempotencyClass string

const (
	// SafeRetry tools may be retried by the orchestrator's backoff policy.
	SafeRetry IdempotencyClass = "safe-retry"
	// UniqueByKey tools probe the read side first; on conflict, the tool's
	// own Invoke upgrades to an update (e.g. create_lead keyed by phone).
	UniqueByKey IdempotencyClass = "unique-by-key"
	// SideEffectOnce tools must not be retried past the network boundary
	// (e.g. send_text); de-duplicated by content fingerprint instead.
	SideEffectOnce IdempotencyClass = "side-effect-once"
)

// Invoke executes one tool call against a decoded argument map, returning an
// arbitrary result payload serializable back to the model.
type Invoke func(ctx context.Context, args map[string]any) (any, error)

// Spec is one registered tool's full metadata (§4.D: "Each tool declares
// name, input schema, output schema, idempotency class").
type Spec struct {
	Name         string
	Category     string // outbound | crm | calendar | persistence | media | utility
	Description  string
	InputSchema  map[string]any
	OutputSchema map[string]any
	Idempotency  IdempotencyClass
	Invoke       Invoke
}

// Catalog is the orchestrator's opaque view of the available tools: it
// knows names, idempotency classes, and how to invoke, never how a tool is
// implemented (§4.D "The orchestrator is agnostic to implementation").
type Catalog struct {
	specs  map[string]Spec
	mu     sync.Mutex
	schema map[string]*jsonschema.Schema // compiled InputSchema, by tool name, lazily populated
}

func NewCatalog() *Catalog {
	return &Catalog{specs: make(map[string]Spec), schema: make(map[string]*jsonschema.Schema)}
}

// Register adds spec to the catalogue. Panics on duplicate names: a
// collision is a wiring bug caught at startup, not a runtime condition.
func (c *Catalog) Register(spec Spec) {
	if _, exists := c.specs[spec.Name]; exists {
		panic(fmt.Sprintf("toolcatalog: duplicate tool name %q", spec.Name))
	}
	c.specs[spec.Name] = spec
}

func (c *Catalog) Get(name string) (Spec, bool) {
	s, ok := c.specs[name]
	return s, ok
}

// ValidateArgs checks a model-supplied argument map against the named
// tool's InputSchema before it reaches Invoke, the same structural guard
// goa-ai's registry applies to tool-call payloads before publishing them.
// Tools with no InputSchema accept any args unchecked.
func (c *Catalog) ValidateArgs(name string, args map[string]any) error {
	spec, ok := c.specs[name]
	if !ok {
		return fmt.Errorf("toolcatalog: unknown tool %q", name)
	}
	if len(spec.InputSchema) == 0 {
		return nil
	}
	schema, err := c.compiledSchema(name, spec.InputSchema)
	if err != nil {
		return fmt.Errorf("toolcatalog: compile schema for %q: %w", name, err)
	}
	// jsonschema/v6 validates decoded JSON documents, so round-trip args
	// through encoding/json rather than handing it the map directly: this
	// normalizes numeric types (float64/json.Number) the same way the
	// model's own JSON-encoded tool call would decode.
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("toolcatalog: marshal args for %q: %w", name, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("toolcatalog: unmarshal args for %q: %w", name, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("toolcatalog: %q arguments failed schema validation: %w", name, err)
	}
	return nil
}

func (c *Catalog) compiledSchema(name string, schemaDoc map[string]any) (*jsonschema.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.schema[name]; ok {
		return s, nil
	}
	compiler := jsonschema.NewCompiler()
	resource := "tool://" + name
	if err := compiler.AddResource(resource, schemaDoc); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile(resource)
	if err != nil {
		return nil, err
	}
	c.schema[name] = schema
	return schema, nil
}

// Declarations returns the subset of metadata the model needs to choose a
// tool: name, description, input schema (§4.D).
func (c *Catalog) Declarations() []Declaration {
	out := make([]Declaration, 0, len(c.specs))
	for _, s := range c.specs {
		out = append(out, Declaration{Name: s.Name, Description: s.Description, InputSchema: s.InputSchema})
	}
	return out
}

// Declaration is the model-facing view of one tool.
type Declaration struct {
	Name        string
	Description string
	InputSchema map[string]any
}
