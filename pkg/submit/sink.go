package submit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// File describes a download before it is stored.
type File struct {
	Name        string
	ContentType string
	Size        int64
}

// Saved describes a stored download.
type Saved struct {
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Size     int64  `json:"size"`
}

// Sink stores file responses.
type Sink interface {
	Save(ctx context.Context, file File, body io.Reader) (Saved, error)
}

// ErrNoSink is returned when a file response arrives and no sink is set.
var ErrNoSink = errors.New("submit: no download sink configured")

// DirSink writes downloads into Dir. Each body goes to a hidden temporary file
// first and is renamed once complete; the temporary file never survives a
// failed save. Existing names get a " (n)" suffix.
type DirSink struct {
	Dir string

	mu sync.Mutex
}

// Save implements Sink.
func (s *DirSink) Save(ctx context.Context, file File, body io.Reader) (Saved, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Saved{}, fmt.Errorf("submit: create download dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+uuid.NewString()+"-*.part")
	if err != nil {
		return Saved{}, fmt.Errorf("submit: create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	written, err := io.Copy(tmp, contextReader{ctx: ctx, r: body})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return Saved{}, fmt.Errorf("submit: write download: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := availablePath(dir, file.Name)
	if err := os.Rename(tmpPath, target); err != nil {
		return Saved{}, fmt.Errorf("submit: finalize download: %w", err)
	}
	return Saved{Name: filepath.Base(target), Location: target, Size: written}, nil
}

func availablePath(dir, name string) string {
	candidate := filepath.Join(dir, name)
	if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
		return candidate
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate = filepath.Join(dir, stem+" ("+strconv.Itoa(i)+")"+ext)
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// MemorySink keeps downloads in memory, keyed by name. Useful for tests and
// for relaying files to another writer.
type MemorySink struct {
	mu    sync.Mutex
	files map[string][]byte
	types map[string]string
}

// Save implements Sink.
func (s *MemorySink) Save(ctx context.Context, file File, body io.Reader) (Saved, error) {
	data, err := io.ReadAll(contextReader{ctx: ctx, r: body})
	if err != nil {
		return Saved{}, fmt.Errorf("submit: read download: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files == nil {
		s.files = make(map[string][]byte)
		s.types = make(map[string]string)
	}
	s.files[file.Name] = data
	s.types[file.Name] = file.ContentType
	return Saved{Name: file.Name, Size: int64(len(data))}, nil
}

// File returns a stored download.
func (s *MemorySink) File(name string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	return data, s.types[name], ok
}

// Names lists stored downloads.
func (s *MemorySink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	return names
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, file File, body io.Reader) (Saved, error)

// Save implements Sink.
func (f SinkFunc) Save(ctx context.Context, file File, body io.Reader) (Saved, error) {
	return f(ctx, file, body)
}
