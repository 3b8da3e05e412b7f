package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/webflow/pkg/engine"
)

// FlowRegistrar receives compiled flows.
type FlowRegistrar interface {
	RegisterFlow(flow *engine.Flow) error
}

// LoadFile compiles one flow document.
func (c *Compiler) LoadFile(path string) (*engine.Flow, error) {
	def, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	flow, err := c.Compile(def)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return flow, nil
}

// LoadDir compiles every .yaml and .yml document of dir, in name order, and
// registers the flows with reg when it is not nil.
func (c *Compiler) LoadDir(dir string, reg FlowRegistrar) ([]*engine.Flow, error) {
	files, err := FlowFiles(dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(files))
	flows := make([]*engine.Flow, 0, len(files))
	for _, path := range files {
		flow, err := c.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[flow.ID()]; ok {
			return nil, fmt.Errorf("duplicate flow id %q in %s and %s", flow.ID(), prev, path)
		}
		seen[flow.ID()] = path
		flows = append(flows, flow)
	}

	if reg != nil {
		for _, flow := range flows {
			if err := reg.RegisterFlow(flow); err != nil {
				return nil, err
			}
		}
	}
	return flows, nil
}

// FlowFiles lists the flow documents of dir.
func FlowFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
