// Package dto defines the document model of YAML flow definitions.
//
// Documents are decoded with gopkg.in/yaml.v3 into generic maps and then into
// these structs with mapstructure, which lets short forms (a bare string for
// a mapping or an action) sit next to the long forms.
package dto
