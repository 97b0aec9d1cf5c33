package approval

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseTemplate decodes a YAML workflow template and validates it.
//
//	name: finance-signoff
//	steps:
//	  - id: manager
//	    approverRole: finance_manager
//	    description: Confirm invoice total
//	  - approverRole: cfo
func ParseTemplate(data []byte) (Workflow, error) {
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return Workflow{}, fmt.Errorf("parse workflow template: %w", err)
	}
	if err := wf.Validate(); err != nil {
		return Workflow{}, err
	}
	return wf, nil
}

// LoadTemplate reads and parses a single template file. A template without
// a name takes the file's base name.
func LoadTemplate(path string) (Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Workflow{}, fmt.Errorf("read workflow template: %w", err)
	}
	wf, err := ParseTemplate(data)
	if err != nil {
		return Workflow{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if wf.Name == "" {
		wf.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return wf, nil
}

// LoadTemplates loads every *.yaml and *.yml file in dir, keyed by template
// name. A missing directory yields an empty map.
func LoadTemplates(dir string) (map[string]Workflow, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Workflow{}, nil
		}
		return nil, fmt.Errorf("read template dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make(map[string]Workflow, len(names))
	for _, name := range names {
		wf, err := LoadTemplate(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if _, dup := out[wf.Name]; dup {
			return nil, fmt.Errorf("duplicate workflow template name %q", wf.Name)
		}
		out[wf.Name] = wf
	}
	return out, nil
}
