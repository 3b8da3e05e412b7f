package compiler

import (
	"fmt"
	"os"
	"reflect"

	"github.com/aretw0/webflow/internal/dto"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML (or JSON) flow document. Unknown keys are rejected.
func Parse(data []byte) (*dto.FlowDefinition, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse flow document: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("empty flow document")
	}

	var def dto.FlowDefinition
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &def,
		ErrorUnused: true,
		DecodeHook:  mapstructure.ComposeDecodeHookFunc(shorthandHook),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid flow document: %w", err)
	}
	if def.ID == "" {
		return nil, fmt.Errorf("flow missing id")
	}
	return &def, nil
}

// ParseFile reads and parses a flow document.
func ParseFile(path string) (*dto.FlowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

var (
	mappingType = reflect.TypeOf(dto.Mapping{})
	actionType  = reflect.TypeOf(dto.Action{})
)

// shorthandHook expands bare strings into mappings ({from: s}) and actions ({call: s}).
func shorthandHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	switch to {
	case mappingType:
		return map[string]any{"from": data}, nil
	case actionType:
		return map[string]any{"call": data}, nil
	}
	return data, nil
}
