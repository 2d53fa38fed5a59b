// Package batch drives the translation of a set of MEL files: it discovers
// sourced files, runs the scanner pass over all of them to build the shared
// procedure registry, then translates the files in parallel and stages the
// resulting modules.
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"github.com/tevino/abool/v2"
	"golang.org/x/text/encoding/charmap"

	"mel2py/pkg/flagdb"
	"mel2py/pkg/scanner"
	"mel2py/pkg/translator"
	"mel2py/pkg/vfs"
)

// Options configures a batch run.
type Options struct {
	Translator translator.Options
	// Jobs bounds the number of files translated at once; zero or less
	// means one per file.
	Jobs int
	// OutDir receives the staged modules. Empty keeps them in memory.
	OutDir string
	// CachePath is the SQLite scan cache. Empty disables caching.
	CachePath string
	// FlagDBPath is a JSON or SQLite (.db, .sqlite) flag database. Empty
	// uses the built-in one.
	FlagDBPath   string
	FollowSource bool
}

// File is one MEL input of the batch.
type File struct {
	Path   string // as given, or as resolved from a source statement
	Module string // the Python module name, unique within the batch
	Source string
	// Options overrides the batch translator options for this file.
	Options *translator.Options
	// SourcedBy is the file whose source statement pulled this one in.
	SourcedBy string
}

// FileResult is the outcome of translating one File.
type FileResult struct {
	File   *File
	Result *translator.Result // nil when translation could not start
	Err    error
}

// Context is the state of one batch run. It replaces any process-wide
// translator state: everything a translation reads from the batch lives
// here and is read-only once the scan pass is done.
type Context struct {
	opts     Options
	Registry *scanner.Registry
	Flags    *flagdb.DB
	Disk     *vfs.VirtualDisk
	// Warnings collects batch-level problems, such as unresolved source
	// statements.
	Warnings []string

	files   []*File
	seen    map[string]bool // absolute paths already added
	modules map[string]bool
	failed  *abool.AtomicBool
}

// New creates a batch, loading the flag database named by opts.
func New(opts Options) (*Context, error) {
	flags, err := loadFlags(opts.FlagDBPath)
	if err != nil {
		return nil, err
	}
	return &Context{
		opts:     opts,
		Registry: scanner.NewRegistry(),
		Flags:    flags,
		Disk:     vfs.NewVirtualDisk(),
		seen:     make(map[string]bool),
		modules:  make(map[string]bool),
		failed:   abool.NewBool(false),
	}, nil
}

func loadFlags(path string) (*flagdb.DB, error) {
	if path == "" {
		return flagdb.Default(), nil
	}
	db, err := flagdb.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load flag database: %w", err)
	}
	return db, nil
}

// Files returns the inputs in the order they were added.
func (c *Context) Files() []*File {
	return c.files
}

// Failed reports whether any translation of the batch recorded errors.
func (c *Context) Failed() bool {
	return c.failed.IsSet()
}

// AddFile reads a MEL file from disk and adds it to the batch. A path that
// was already added is ignored.
func (c *Context) AddFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if c.seen[abs] {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	src, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	c.seen[abs] = true
	return c.AddSource(path, src), nil
}

// AddSource adds in-memory MEL source under the given path.
func (c *Context) AddSource(path, src string) *File {
	f := &File{
		Path:   path,
		Module: c.uniqueModule(translator.ModuleName(path)),
		Source: src,
	}
	c.files = append(c.files, f)
	return f
}

// uniqueModule suffixes name until no other file of the batch uses it.
func (c *Context) uniqueModule(name string) string {
	unique := name
	for i := 2; c.modules[unique]; i++ {
		unique = name + "_" + strconv.Itoa(i)
	}
	c.modules[unique] = true
	return unique
}

// decode reads MEL source as UTF-8, falling back to Latin-1 for files that
// are not valid UTF-8.
func decode(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (c *Context) optionsFor(f *File) translator.Options {
	if f.Options != nil {
		return *f.Options
	}
	return c.opts.Translator
}

func (c *Context) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}
