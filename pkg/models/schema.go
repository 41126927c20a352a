package models

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchema represents a JSON Schema document.
type JSONSchema struct {
	Type                 string               `json:"type"`
	Properties           map[string]*Property `json:"properties,omitempty"`
	Required             []string             `json:"required,omitempty"`
	Title                string               `json:"title,omitempty"`
	Description          string               `json:"description,omitempty"`
	AdditionalProperties *bool                `json:"additionalProperties,omitempty"`
}

// Property represents a JSON Schema property.
type Property struct {
	Type        any                  `json:"type"`
	Description string               `json:"description,omitempty"`
	Enum        []any                `json:"enum,omitempty"`
	Default     any                  `json:"default,omitempty"`
	Format      string               `json:"format,omitempty"`
	MinLength   *int                 `json:"minLength,omitempty"`
	Minimum     *float64             `json:"minimum,omitempty"`
	Pattern     string               `json:"pattern,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

// WorkflowDocumentSchema describes a workflow document as exported by `workflow show` and
// accepted by `workflow validate` and `workflow save`.
func WorkflowDocumentSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Title:       "Workflow",
		Description: "Workflow document with nodes and condition-tagged edges",
		Required:    []string{"name", "nodes", "edges"},
		Properties: map[string]*Property{
			"id":                     {Type: "integer"},
			"name":                   {Type: "string", MinLength: intPtr(1)},
			"description":            {Type: "string"},
			"trigger_type":           {Type: "string", Enum: []any{"user", "schedule", "webhook"}},
			"schedule_cron":          {Type: []any{"string", "null"}},
			"schedule_timezone":      {Type: []any{"string", "null"}},
			"webhook_url":            {Type: []any{"string", "null"}},
			"webhook_method":         {Type: []any{"string", "null"}},
			"webhook_payload":        {Type: []any{"string", "null"}},
			"max_retries":            {Type: "integer", Minimum: floatPtr(0)},
			"retry_interval_seconds": {Type: "integer", Minimum: floatPtr(0)},
			"group_failure_policy":   {Type: "string", Enum: []any{"any", "all"}},
			"nodes": {
				Type: "array",
				Items: &Property{
					Type:     "object",
					Required: []string{"key"},
					Properties: map[string]*Property{
						"id":          {Type: "integer"},
						"key":         {Type: "string", MinLength: intPtr(1)},
						"name":        {Type: []any{"string", "null"}},
						"script_id":   {Type: []any{"integer", "null"}},
						"target_type": {Type: []any{"string", "null"}, Enum: []any{"server", "group", "", nil}},
						"target_id":   {Type: []any{"integer", "null"}},
						"parameters":  {Type: []any{"object", "string", "null"}},
						"position": {
							Type:     []any{"object", "string", "null"},
							Required: []string{"x", "y"},
							Properties: map[string]*Property{
								"x": {Type: "number"},
								"y": {Type: "number"},
							},
						},
					},
				},
			},
			"edges": {
				Type: "array",
				Items: &Property{
					Type:     "object",
					Required: []string{"source", "target"},
					Properties: map[string]*Property{
						"id":        {Type: "integer"},
						"source":    {Type: "string", MinLength: intPtr(1)},
						"target":    {Type: "string", MinLength: intPtr(1)},
						"condition": {Type: "string", Enum: []any{"on_success", "on_failure"}},
					},
				},
			},
		},
	}
}

// ValidateDocument checks decoded JSON data against the workflow document schema.
func ValidateDocument(document any) error {
	schemaLoader := gojsonschema.NewGoLoader(WorkflowDocumentSchema())
	dataLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}

		return fmt.Errorf("invalid workflow document: %s", strings.Join(errors, "; "))
	}

	return nil
}
