package utils

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Kamar-Folarin/commit-painter/internal/models"
)

// CellSpec is the wire form of an intensity cell in map files and API requests.
type CellSpec struct {
	Date  string `json:"date" yaml:"date"`
	Level int    `json:"level" yaml:"level"`
	// InYear defaults to whether Date falls in the requested year.
	InYear *bool `json:"in_year,omitempty" yaml:"in_year,omitempty"`
}

// IntensityMap is the document read by ReadIntensityMap.
type IntensityMap struct {
	Year  string     `yaml:"year,omitempty"`
	Cells []CellSpec `yaml:"cells"`
}

// BuildCells converts specs into cells for year, rejecting bad dates and levels.
func BuildCells(specs []CellSpec, year int) ([]models.IntensityCell, error) {
	cells := make([]models.IntensityCell, 0, len(specs))
	for i, spec := range specs {
		date, err := ParseDate(spec.Date)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
		if spec.Level < 0 || spec.Level > models.MaxLevel {
			return nil, fmt.Errorf("cell %d (%s): level %d out of range 0..%d", i, spec.Date, spec.Level, models.MaxLevel)
		}
		inYear := date.Year() == year
		if spec.InYear != nil {
			inYear = *spec.InYear
		}
		cells = append(cells, models.IntensityCell{Date: date, Level: spec.Level, InSelectedYear: inYear})
	}
	return cells, nil
}

// ReadIntensityMap decodes a YAML (or JSON) map: either a list of cells or
// a document with "year" and "cells".
func ReadIntensityMap(r io.Reader) (*IntensityMap, error) {
	var node yaml.Node
	if err := yaml.NewDecoder(r).Decode(&node); err != nil {
		if err == io.EOF {
			return &IntensityMap{}, nil
		}
		return nil, fmt.Errorf("failed to parse intensity map: %w", err)
	}

	var m IntensityMap
	root := &node
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&m.Cells); err != nil {
			return nil, fmt.Errorf("failed to decode cells: %w", err)
		}
	case yaml.MappingNode:
		if err := root.Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to decode intensity map: %w", err)
		}
	default:
		return nil, fmt.Errorf("intensity map must be a list of cells or a mapping with cells")
	}
	return &m, nil
}
