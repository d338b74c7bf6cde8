// Schema Generator
//
// Generates JSON Schema files for the import configuration and for the
// records the import reads and reports, so config files can be validated
// in editors and run reports consumed by other tooling.
//
// Usage:
//
//	go run ./cmd/schema-gen
//
// Output:
//
//	config/config.schema.json
//	schemas/import.json
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/tene/catalog-import/config"
	"github.com/tene/catalog-import/internal/adminapi"
	"github.com/tene/catalog-import/internal/pipeline"
	"github.com/tene/catalog-import/internal/types"
)

// SchemaGroup represents a group of related schemas
type SchemaGroup struct {
	Name   string
	Types  []any
	Output string
}

func main() {
	groups := []SchemaGroup{
		{
			Name:   "config",
			Types:  []any{config.Config{}},
			Output: "config/config.schema.json",
		},
		{
			Name: "import",
			Types: []any{
				// Inputs
				types.LegacyCategoryRow{},
				types.LegacyProductRow{},
				// Admin API payloads
				types.CategoryPayload{},
				adminapi.ImageRequest{},
				// Reports
				types.RunResult{},
				pipeline.InspectReport{},
			},
			Output: "schemas/import.json",
		},
	}

	for _, group := range groups {
		schema := generateGroupSchema(group)

		if err := writeSchema(schema, group.Output); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", group.Output, err)
			os.Exit(1)
		}

		fmt.Printf("Generated %s\n", group.Output)
	}

	fmt.Println("Schema generation complete!")
}

// generateGroupSchema creates a combined schema with all types in a group
func generateGroupSchema(group SchemaGroup) map[string]any {
	reflector := &jsonschema.Reflector{
		DoNotReference: false,
		ExpandedStruct: false,
	}

	// Create combined definitions
	definitions := make(map[string]any)

	for _, t := range group.Types {
		schema := reflector.Reflect(t)

		// Get the type name from the schema
		typeName := ""
		if schema.Ref != "" {
			// Extract type name from $ref like "#/$defs/RunResult"
			typeName = filepath.Base(schema.Ref)
		}

		// Add all definitions from this type's schema
		for name, def := range schema.Definitions {
			definitions[name] = def
		}

		// If there's a main type, add it to definitions too
		if typeName != "" && schema.Definitions[typeName] != nil {
			definitions[typeName] = schema.Definitions[typeName]
		}
	}

	return map[string]any{
		"$schema":     "https://json-schema.org/draft/2020-12/schema",
		"$id":         fmt.Sprintf("https://github.com/tene/catalog-import/schemas/%s.json", group.Name),
		"title":       fmt.Sprintf("%s Types", capitalize(group.Name)),
		"description": fmt.Sprintf("JSON Schema for %s types generated from Go structs", group.Name),
		"$defs":       definitions,
	}
}

// writeSchema writes a schema to a JSON file
func writeSchema(schema map[string]any, path string) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
