package cli

import (
	"github.com/aretw0/webflow/internal/compiler"
	"github.com/aretw0/webflow/internal/dto"
	"github.com/aretw0/webflow/internal/validator"
)

// FlowReport is the validation result of one definition file.
type FlowReport struct {
	Path   string
	FlowID string
	Report *validator.Report
	Err    error // set when the file could not be parsed
}

// OK reports whether the file parsed and has no errors.
func (r FlowReport) OK() bool { return r.Err == nil && r.Report.OK() }

// ValidateDir checks every definition in dir. Subflow references are
// resolved against the flows of the same directory.
func ValidateDir(dir string) ([]FlowReport, error) {
	files, err := compiler.FlowFiles(dir)
	if err != nil {
		return nil, err
	}

	reports := make([]FlowReport, len(files))
	defs := make([]*dto.FlowDefinition, len(files))
	var known []string
	for i, path := range files {
		reports[i].Path = path
		def, err := compiler.ParseFile(path)
		if err != nil {
			reports[i].Err = err
			continue
		}
		defs[i] = def
		reports[i].FlowID = def.ID
		known = append(known, def.ID)
	}
	for i, def := range defs {
		if def != nil {
			reports[i].Report = validator.Inspect(def, known...)
		}
	}
	return reports, nil
}
