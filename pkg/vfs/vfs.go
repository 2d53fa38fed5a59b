// Package vfs stages translated Python modules in memory until they are
// persisted to an output directory.
package vfs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/zeebo/blake3"
)

// validFilename accepts importable Python module file names.
var validFilename = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*\.py$`)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidFilename = errors.New("invalid module filename")
)

type FileEntry struct {
	Data   []byte
	Digest [32]byte
	Source string // the MEL file the module was translated from
}

// VirtualDisk holds staged modules. It is safe for concurrent use by the
// translation workers of a batch.
type VirtualDisk struct {
	Mu         sync.RWMutex
	Files      map[string]*FileEntry
	DirtyFiles map[string]bool
	UsedBytes  int
}

func NewVirtualDisk() *VirtualDisk {
	return &VirtualDisk{
		Files:      make(map[string]*FileEntry),
		DirtyFiles: make(map[string]bool),
	}
}

// Write stages data under filename, replacing any earlier module of that
// name. The data is copied. Rewriting identical content does not mark the
// module dirty.
func (vd *VirtualDisk) Write(filename, source string, data []byte) error {
	if !validFilename.MatchString(filename) {
		return ErrInvalidFilename
	}
	digest := blake3.Sum256(data)

	vd.Mu.Lock()
	defer vd.Mu.Unlock()

	oldSize := 0
	if existing, ok := vd.Files[filename]; ok {
		if existing.Digest == digest {
			existing.Source = source
			return nil
		}
		oldSize = len(existing.Data)
	}

	newData := make([]byte, len(data))
	copy(newData, data)
	vd.Files[filename] = &FileEntry{
		Data:   newData,
		Digest: digest,
		Source: source,
	}
	vd.DirtyFiles[filename] = true
	vd.UsedBytes += len(data) - oldSize
	return nil
}

func (vd *VirtualDisk) Read(filename string) ([]byte, error) {
	vd.Mu.RLock()
	defer vd.Mu.RUnlock()

	if !validFilename.MatchString(filename) {
		return nil, ErrInvalidFilename
	}
	entry, ok := vd.Files[filename]
	if !ok {
		return nil, ErrFileNotFound
	}
	return entry.Data, nil
}

// SourceOf returns the MEL path a staged module came from.
func (vd *VirtualDisk) SourceOf(filename string) (string, error) {
	vd.Mu.RLock()
	defer vd.Mu.RUnlock()

	entry, ok := vd.Files[filename]
	if !ok {
		return "", ErrFileNotFound
	}
	return entry.Source, nil
}

// List returns the staged filenames in sorted order.
func (vd *VirtualDisk) List() []string {
	vd.Mu.RLock()
	defer vd.Mu.RUnlock()

	keys := make([]string, 0, len(vd.Files))
	for k := range vd.Files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PersistTo writes the dirty modules into dir, creating it if needed. A
// module whose file on disk already holds the same bytes is not rewritten.
// It returns the names actually written, sorted, and the first write error.
func (vd *VirtualDisk) PersistTo(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	// Snapshot under the lock, then write without holding it.
	vd.Mu.Lock()
	snapshot := make(map[string]*FileEntry, len(vd.DirtyFiles))
	for name := range vd.DirtyFiles {
		if entry, ok := vd.Files[name]; ok {
			snapshot[name] = entry
		}
		delete(vd.DirtyFiles, name)
	}
	vd.Mu.Unlock()

	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	var written []string
	var firstErr error
	for _, name := range names {
		entry := snapshot[name]
		path := filepath.Join(dir, name)
		if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, entry.Data) {
			continue
		}
		if err := os.WriteFile(path, entry.Data, 0644); err != nil {
			vd.Mu.Lock()
			vd.DirtyFiles[name] = true
			vd.Mu.Unlock()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		written = append(written, name)
	}
	return written, firstErr
}
