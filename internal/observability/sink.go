package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

const DefaultMaxSize = 10 * 1024 * 1024 // 10MB

// FileSink appends JSON lines to a file, keeping one rotated .old copy once
// the file grows past maxSize.
type FileSink struct {
	mu      sync.Mutex
	path    string
	maxSize int64
}

func NewFileSink(path string, maxSize int64) *FileSink {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &FileSink{path: path, maxSize: maxSize}
}

func (s *FileSink) Path() string { return s.path }

// Append marshals v as one JSON line.
func (s *FileSink) Append(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return s.append(data)
}

// Write appends a pre-encoded line, logging instead of returning failures.
func (s *FileSink) Write(data []byte) {
	if err := s.append(data); err != nil {
		log.Printf("%v", err)
	}
}

func (s *FileSink) append(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	// Check size before writing
	info, err := os.Stat(s.path)
	if err == nil && info.Size() > s.maxSize {
		s.rotate()
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write to log file: %w", err)
	}
	return nil
}

func (s *FileSink) rotate() {
	// Simple rotation: keep one .old file
	oldPath := s.path + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(s.path, oldPath)
}
