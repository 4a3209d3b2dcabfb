// Package model defines the data exchanged between the playvars layers.
package model

import "path/filepath"

// Path represents a file system path.
type Path string

// File represents a template file on disk.
type File struct {
	Path Path   `yaml:"path" json:"path"`
	Hash string `yaml:"hash" json:"hash"`
}

// Source is a discovered template. Origin is nil for templates read from stdin.
type Source struct {
	Origin *File `yaml:"origin" json:"origin"`
}

// Name returns the template file name, or "-" for stdin.
func (s Source) Name() string {
	if s.Origin == nil {
		return "-"
	}

	return filepath.Base(string(s.Origin.Path))
}

// Dir returns the directory holding the template.
func (s Source) Dir() Path {
	if s.Origin == nil {
		return ""
	}

	return Path(filepath.Dir(string(s.Origin.Path)))
}
