package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// ProjectInfo is the optional [project] table of a project file.
type ProjectInfo struct {
	Name string `toml:"name" json:"name,omitempty"`
	// Start is the project start date. Empty means infer it.
	Start string `toml:"start" json:"start,omitempty"`
}

// File is a parsed project file.
type File struct {
	Project ProjectInfo `toml:"project" json:"project"`
	Tasks   []Record    `toml:"task" json:"tasks"`
}

// Load reads a project from a .csv, .toml or .json file. CSV files carry
// no project table; their name defaults to the file's base name.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: reading %s: %w", path, err)
	}

	var f *File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		records, rerr := ReadCSV(bytes.NewReader(data))
		if rerr != nil {
			return nil, rerr
		}
		f = &File{Tasks: records}
	case ".toml":
		f, err = ReadTOML(bytes.NewReader(data))
	case ".json":
		f, err = ReadJSON(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if f.Project.Name == "" {
		f.Project.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return f, nil
}

// ReadTOML parses a project file with an optional [project] table and
// one [[task]] table per task.
func ReadTOML(r io.Reader) (*File, error) {
	var f File
	if err := toml.NewDecoder(r).Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// ReadJSON parses either a project object {"project": ..., "tasks": [...]}
// or a bare array of task records.
func ReadJSON(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return &File{Tasks: records}, nil
	}
	var f File
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
