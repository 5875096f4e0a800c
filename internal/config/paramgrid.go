package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/rkvolt/perpswap-engine/internal/sweep"
	"gopkg.in/yaml.v3"
)

// ParamGridDoc is the on-disk shape of a sweep parameter grid YAML file:
// one named list of values per tunable parameter. Values are decoded as
// `any` so a single list can hold ints, floats, or bools, matching
// sweep.ParamList.
type ParamGridDoc struct {
	Inst   string                 `yaml:"inst"`
	Period string                 `yaml:"period"`
	Lists  map[string][]any `yaml:"lists"`
}

// LoadParamGrid reads and parses a sweep parameter grid YAML file, in map
// order normalized to a stable sort by key so ConfigHash is reproducible
// across loads of the same file content.
func LoadParamGrid(path string) (*ParamGridDoc, []sweep.ParamList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("config: read param grid %s: %w", path, err)
	}
	var doc ParamGridDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("config: unmarshal param grid: %w", err)
	}
	if doc.Inst == "" {
		return nil, nil, fmt.Errorf("config: param grid %s missing inst", path)
	}

	names := make([]string, 0, len(doc.Lists))
	for name := range doc.Lists {
		names = append(names, name)
	}
	sort.Strings(names)

	lists := make([]sweep.ParamList, 0, len(names))
	for _, name := range names {
		lists = append(lists, sweep.ParamList{Name: name, Values: doc.Lists[name]})
	}
	return &doc, lists, nil
}
