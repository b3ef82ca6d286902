package ai

import (
	"encoding/json"
	"fmt"
	"sort"

	"uniform-tracker/internal/core"

	"github.com/invopop/jsonschema"
)

// schemaTargets maps the public schema names to the types they describe.
var schemaTargets = map[string]func() any{
	"note-proposal":         func() any { return &NoteProposal{} },
	"student-deficit":       func() any { return &core.StudentDeficit{} },
	"school-deficit-report": func() any { return &core.SchoolDeficitReport{} },
	"stock-level":           func() any { return &core.StockLevel{} },
	"log-entry":             func() any { return &core.LogEntry{} },
}

// SchemaNames lists the names Schema accepts, sorted.
func SchemaNames() []string {
	names := make([]string, 0, len(schemaTargets))
	for n := range schemaTargets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Schema returns the JSON schema for a named output type.
func Schema(name string) (*jsonschema.Schema, error) {
	target, ok := schemaTargets[name]
	if !ok {
		return nil, core.NotFound("schema", name)
	}
	return reflector().Reflect(target()), nil
}

func reflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
}

func schemaAsMap(v any) (map[string]any, error) {
	schemaJSON, err := json.Marshal(reflector().Reflect(v))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}
	return schemaMap, nil
}
