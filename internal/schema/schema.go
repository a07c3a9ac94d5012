// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package schema derives configuration documentation from struct tags.
// Field names come from `yaml` tags, descriptions from `docdesc` and
// documented defaults from `docdefault`. A field whose yaml tag lacks
// omitempty is required.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// ErrNotStruct is returned when a definition is not a struct or pointer to struct.
var ErrNotStruct = errors.New("expected struct type")

// Field describes one configuration key.
type Field struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required,omitempty"`
	Default     string  `json:"default,omitempty"`
	Properties  []Field `json:"properties,omitempty"`
	Items       *Field  `json:"items,omitempty"`
}

// Schema is the field tree of a definition.
type Schema struct {
	Title       string
	Description string
	Fields      []Field
}

// Generate builds the schema of def, which must be a struct or pointer to struct.
func Generate(title, description string, def any) (*Schema, error) {
	fields, err := extractFields(reflect.TypeOf(def))
	if err != nil {
		return nil, err
	}

	return &Schema{
		Title:       title,
		Description: description,
		Fields:      fields,
	}, nil
}

func extractFields(t reflect.Type) ([]Field, error) {
	if t == nil {
		return nil, fmt.Errorf("%w, got nil", ErrNotStruct)
	}

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w, got %s", ErrNotStruct, t.Kind())
	}

	var fields []Field

	for i := range t.NumField() {
		sf := t.Field(i)

		if !sf.IsExported() {
			continue
		}

		yamlTag := sf.Tag.Get("yaml")
		if yamlTag == "-" {
			continue
		}

		parts := strings.Split(yamlTag, ",")

		if sf.Anonymous || slices.Contains(parts[1:], "inline") {
			embedded, err := extractFields(sf.Type)
			if err != nil {
				return nil, err
			}

			fields = append(fields, embedded...)

			continue
		}

		name := parts[0]
		if name == "" {
			name = strings.ToLower(sf.Name)
		}

		f := Field{
			Name:        name,
			Type:        schemaType(sf.Type),
			Description: sf.Tag.Get("docdesc"),
			Required:    !slices.Contains(parts[1:], "omitempty"),
			Default:     sf.Tag.Get("docdefault"),
		}

		elem := sf.Type
		if elem.Kind() == reflect.Ptr {
			elem = elem.Elem()
		}

		switch {
		case elem.Kind() == reflect.Struct && elem != reflect.TypeOf(time.Time{}):
			props, err := extractFields(elem)
			if err != nil {
				return nil, err
			}

			f.Properties = props
		case elem.Kind() == reflect.Slice:
			f.Items = &Field{Type: schemaType(elem.Elem())}
		}

		fields = append(fields, f)
	}

	return fields, nil
}

func schemaType(t reflect.Type) string {
	if t == reflect.TypeOf(time.Duration(0)) {
		return "duration"
	}

	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Ptr:
		return schemaType(t.Elem())
	default:
		return "string"
	}
}

// WriteJSONSchema writes a JSON Schema (draft 2020-12) document for s.
func (s *Schema) WriteJSONSchema(w io.Writer) error {
	root := objectSchema(s.Fields)
	root["$schema"] = "https://json-schema.org/draft/2020-12/schema"
	root["title"] = s.Title

	if s.Description != "" {
		root["description"] = s.Description
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(root) //nolint:wrapcheck
}

func objectSchema(fields []Field) map[string]any {
	props := make(map[string]any, len(fields))

	var required []string

	for _, f := range fields {
		props[f.Name] = property(f)

		if f.Required {
			required = append(required, f.Name)
		}
	}

	out := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}

	if len(required) > 0 {
		out["required"] = required
	}

	return out
}

func property(f Field) map[string]any {
	var prop map[string]any

	switch {
	case len(f.Properties) > 0:
		prop = objectSchema(f.Properties)
	case f.Type == "duration":
		prop = map[string]any{"type": "string", "format": "duration"}
	default:
		prop = map[string]any{"type": f.Type}
	}

	if f.Items != nil {
		prop["items"] = property(*f.Items)
	}

	if f.Description != "" {
		prop["description"] = f.Description
	}

	if f.Default != "" {
		prop["default"] = f.Default
	}

	return prop
}

// WriteMarkdown writes a reference table of every key, nested keys in dotted form.
func (s *Schema) WriteMarkdown(w io.Writer) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", s.Title)

	if s.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", s.Description)
	}

	sb.WriteString("| Key | Type | Required | Default | Description |\n")
	sb.WriteString("|-----|------|----------|---------|-------------|\n")
	writeRows(&sb, "", s.Fields)

	_, err := io.WriteString(w, sb.String())

	return err //nolint:wrapcheck
}

func writeRows(sb *strings.Builder, prefix string, fields []Field) {
	for _, f := range fields {
		key := prefix + f.Name
		required := "no"

		if f.Required {
			required = "yes"
		}

		def := ""
		if f.Default != "" {
			def = "`" + f.Default + "`"
		}

		fmt.Fprintf(sb, "| `%s` | %s | %s | %s | %s |\n", key, f.Type, required, def, f.Description)

		if len(f.Properties) > 0 {
			writeRows(sb, key+".", f.Properties)
		}
	}
}

// WriteYAMLExample marshals example as YAML.
func WriteYAMLExample(w io.Writer, example any) error {
	b, err := yaml.MarshalWithOptions(example, yaml.IndentSequence(true))
	if err != nil {
		return fmt.Errorf("marshal example: %w", err)
	}

	_, err = w.Write(b)

	return err //nolint:wrapcheck
}
