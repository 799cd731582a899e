package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ArtifactSink receives generated files for the build output
type ArtifactSink interface {
	AddResourceFile(data []byte, name string) error
}

// DirSink writes each artifact into a directory, creating it if needed
type DirSink struct {
	Dir string
}

// NewDirSink creates a sink writing into dir
func NewDirSink(dir string) *DirSink {
	return &DirSink{Dir: dir}
}

// Path returns where an artifact called name is written
func (s *DirSink) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// AddResourceFile writes data to Dir/name
func (s *DirSink) AddResourceFile(data []byte, name string) error {
	if s.Dir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if name == "" || filepath.Base(name) != name {
		return fmt.Errorf("invalid artifact name %q", name)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", s.Dir, err)
	}

	path := s.Path(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// MemorySink keeps artifacts in memory
type MemorySink struct {
	files map[string][]byte
}

// NewMemorySink creates an empty in-memory sink
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// AddResourceFile stores a copy of data under name, replacing any earlier file
func (s *MemorySink) AddResourceFile(data []byte, name string) error {
	s.files[name] = append([]byte(nil), data...)
	return nil
}

// File returns the artifact stored under name
func (s *MemorySink) File(name string) ([]byte, bool) {
	data, ok := s.files[name]
	return data, ok
}

// Names returns the stored artifact names in sorted order
func (s *MemorySink) Names() []string {
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
