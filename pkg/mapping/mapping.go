// Package mapping copies attributes from a source environment into a target
// scope, converting types on the way. Flows use it for input and output
// mapping, subflow states for passing data to and from the child flow.
package mapping

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/expression"
	"github.com/mitchellh/mapstructure"
)

// Mapping describes a single source to target copy.
type Mapping struct {
	// Source is evaluated against the source environment.
	Source *expression.Expression

	// Target is where the value is assigned.
	Target expression.Path

	// Type optionally names the type the value is converted to (see Convert).
	Type string

	// Required makes a nil or empty source value a mapping error.
	Required bool
}

// String describes the mapping for diagnostics.
func (m Mapping) String() string {
	return fmt.Sprintf("%s -> %s", m.Source, m.Target)
}

// Simple builds the common mapping "name -> <scope>.name".
// An empty scope targets the root of the target map.
func Simple(name, scope string) (Mapping, error) {
	src, err := expression.Parse(name)
	if err != nil {
		return Mapping{}, err
	}
	target, err := expression.ParsePath(name)
	if err != nil {
		return Mapping{}, err
	}
	if scope != "" {
		target = target.WithDefaultScope(scope)
	}
	return Mapping{Source: src, Target: target}, nil
}

// Target receives mapped values.
type Target interface {
	Assign(path expression.Path, value any) error
}

// AttributesTarget assigns into a plain attribute map; scope-qualified paths are rejected.
type AttributesTarget domain.Attributes

// Assign implements Target.
func (t AttributesTarget) Assign(path expression.Path, value any) error {
	if path.Scope != "" {
		return fmt.Errorf("cannot assign %s into a plain attribute map", path)
	}
	return path.Set(domain.Attributes(t), value)
}

// ScopesTarget assigns into request scopes. Paths without scope use Default.
type ScopesTarget struct {
	Scopes  expression.Scopes
	Default string
}

// Assign implements Target.
func (t ScopesTarget) Assign(path expression.Path, value any) error {
	return path.WithDefaultScope(t.Default).Assign(t.Scopes, value)
}

// Mapper applies an ordered list of mappings. It is immutable once built.
type Mapper struct {
	mappings []Mapping
}

// NewMapper creates a mapper.
func NewMapper(mappings ...Mapping) *Mapper {
	return &Mapper{mappings: append([]Mapping(nil), mappings...)}
}

// Mappings returns a copy of the configured mappings.
func (m *Mapper) Mappings() []Mapping {
	return append([]Mapping(nil), m.mappings...)
}

// Map evaluates every mapping against env and assigns the results to target.
// All mappings are attempted; failures are collected in the returned Results.
func (m *Mapper) Map(env map[string]any, target Target) *Results {
	if env == nil {
		env = map[string]any{}
	}
	results := &Results{}
	for _, mp := range m.mappings {
		results.add(m.apply(mp, env, target))
	}
	return results
}

func (m *Mapper) apply(mp Mapping, env map[string]any, target Target) Result {
	res := Result{Mapping: mp.String()}

	value, err := mp.Source.Eval(env)
	if err != nil {
		res.Kind, res.Err = EvaluationError, err
		return res
	}
	res.Original = value

	if isEmpty(value) {
		if mp.Required {
			res.Kind = RequiredMissing
			res.Err = fmt.Errorf("required value %s is missing", mp.Source)
			return res
		}
	}

	if mp.Type != "" && value != nil {
		converted, err := Convert(value, mp.Type)
		if err != nil {
			res.Kind, res.Err = TypeConversionError, err
			return res
		}
		value = converted
	}
	res.Value = value

	if err := target.Assign(mp.Target, value); err != nil {
		res.Kind, res.Err = AssignmentError, err
		return res
	}
	res.Kind = Success
	return res
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

var conversionTypes = map[string]reflect.Type{
	"string":   reflect.TypeOf(""),
	"int":      reflect.TypeOf(0),
	"int64":    reflect.TypeOf(int64(0)),
	"float":    reflect.TypeOf(float64(0)),
	"float64":  reflect.TypeOf(float64(0)),
	"bool":     reflect.TypeOf(false),
	"duration": reflect.TypeOf(time.Duration(0)),
	"[]string": reflect.TypeOf([]string(nil)),
	"map":      reflect.TypeOf(map[string]any(nil)),
}

// Types lists the type names accepted by Convert.
func Types() []string {
	names := make([]string, 0, len(conversionTypes))
	for k := range conversionTypes {
		names = append(names, k)
	}
	return names
}

// Convert converts value to the named type using weakly typed decoding,
// so "3" becomes 3 for "int" and "90s" becomes a time.Duration for "duration".
func Convert(value any, typeName string) (any, error) {
	typ, ok := conversionTypes[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown conversion type %q", typeName)
	}
	out := reflect.New(typ)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out.Interface(),
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(value); err != nil {
		return nil, fmt.Errorf("cannot convert %v (%T) to %s: %w", value, value, typeName, err)
	}
	return out.Elem().Interface(), nil
}
