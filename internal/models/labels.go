package models

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ClassNames maps model class ids to human-readable labels.
type ClassNames map[int]string

// Lookup resolves a class id, falling back to UnknownClass for ids missing
// from the table. A listed id keeps its name even when that name is empty.
func (c ClassNames) Lookup(classID int) string {
	if name, ok := c[classID]; ok {
		return name
	}
	return UnknownClass
}

// Names returns the labels ordered by class id.
func (c ClassNames) Names() []string {
	ids := make([]int, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, c[id])
	}
	return names
}

// ParseClassNames reads a class table from YAML. The table may be the "names"
// entry of an Ultralytics metadata file, a bare id→name mapping (including the
// flow form "{0: 'a', 1: 'b'}" stored in exported model metadata) or a plain
// list indexed from zero.
func ParseClassNames(data []byte) (ClassNames, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse class names: %w", err)
	}
	if len(doc.Content) == 0 {
		return ClassNames{}, nil
	}

	node := doc.Content[0]
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == "names" {
				node = node.Content[i+1]
				break
			}
		}
	}

	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return nil, fmt.Errorf("failed to decode class name list: %w", err)
		}
		names := make(ClassNames, len(list))
		for i, name := range list {
			names[i] = name
		}
		return names, nil

	case yaml.MappingNode:
		var names map[int]string
		if err := node.Decode(&names); err != nil {
			return nil, fmt.Errorf("failed to decode class name mapping: %w", err)
		}
		return ClassNames(names), nil

	default:
		return nil, fmt.Errorf("class names must be a list or a mapping, line %d", node.Line)
	}
}

// LoadClassNames reads and parses a class table file.
func LoadClassNames(path string) (ClassNames, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read class names: %w", err)
	}
	return ParseClassNames(data)
}
