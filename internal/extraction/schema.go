package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var lineFields = []string{
	FieldInvoiceNo, FieldOriginalFileNo, FieldDate, FieldCarrier, FieldLoadingPort,
	FieldDestination, FieldVessel, FieldETD, FieldETA, FieldOBL, FieldHBL, FieldMBL,
	FieldReceipt, FieldItem, FieldQuantity, FieldAmount, FieldUnitPrice, FieldContainerType,
}

var (
	schemaOnce sync.Once
	lineSchema *jsonschema.Schema
	schemaErr  error
)

func linesSchemaMap() map[string]any {
	props := make(map[string]any, len(lineFields))
	for _, f := range lineFields {
		props[f] = map[string]any{"type": []string{"string", "number", "null"}}
	}
	return map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type":    "array",
		"items": map[string]any{
			"type":       "object",
			"properties": props,
		},
	}
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		b, err := json.Marshal(linesSchemaMap())
		if err != nil {
			schemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("lines.json", bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		lineSchema, schemaErr = compiler.Compile("lines.json")
	})
	return lineSchema, schemaErr
}

func validateLines(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal lines: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("lines do not match schema: %w", err)
	}
	return nil
}
