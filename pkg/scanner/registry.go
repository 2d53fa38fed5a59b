package scanner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/segmentio/fasthash/fnv1a"
)

// ProcRef locates a global procedure inside the batch.
type ProcRef struct {
	Module string
	Proc   ProcInfo
}

// Registry is the cross-file procedure index. It is filled by the scanner
// pass and only read afterwards, so translators may share it without locking.
type Registry struct {
	modules map[string]*FileProcs
	procs   map[string]ProcRef
	// Conflicts lists global procedures defined by more than one module;
	// the module added first keeps the name.
	Conflicts map[string][]string
}

func NewRegistry() *Registry {
	return &Registry{
		modules:   make(map[string]*FileProcs),
		procs:     make(map[string]ProcRef),
		Conflicts: make(map[string][]string),
	}
}

// Add indexes the global procedures of module. Adding the same module twice
// replaces its earlier entries.
func (r *Registry) Add(module string, fp *FileProcs) {
	if _, ok := r.modules[module]; ok {
		for name, ref := range r.procs {
			if ref.Module == module {
				delete(r.procs, name)
			}
		}
	}
	r.modules[module] = fp
	for _, name := range fp.Order {
		p, ok := fp.Globals[name]
		if !ok {
			continue
		}
		if prev, exists := r.procs[name]; exists && prev.Module != module {
			r.Conflicts[name] = append(r.Conflicts[name], module)
			continue
		}
		r.procs[name] = ProcRef{Module: module, Proc: p}
	}
}

// Lookup resolves a global procedure name.
func (r *Registry) Lookup(name string) (ProcRef, bool) {
	if r == nil {
		return ProcRef{}, false
	}
	ref, ok := r.procs[name]
	return ref, ok
}

// HasModule reports whether module was added to the registry.
func (r *Registry) HasModule(module string) bool {
	if r == nil {
		return false
	}
	_, ok := r.modules[module]
	return ok
}

// Module returns the index of one module.
func (r *Registry) Module(module string) (*FileProcs, bool) {
	fp, ok := r.modules[module]
	return fp, ok
}

// Modules returns the module names in sorted order.
func (r *Registry) Modules() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fingerprint hashes the resolved index. Two registries built from the same
// files have the same fingerprint regardless of insertion order of
// non-conflicting modules.
func (r *Registry) Fingerprint() uint64 {
	names := make([]string, 0, len(r.procs))
	for name := range r.procs {
		names = append(names, name)
	}
	sort.Strings(names)

	h := fnv1a.Init64
	for _, name := range names {
		ref := r.procs[name]
		h = fnv1a.AddString64(h, ref.Module)
		h = fnv1a.AddString64(h, "\x00")
		h = fnv1a.AddString64(h, ref.Proc.String())
		h = fnv1a.AddString64(h, "\n")
	}
	return h
}

// String returns a deterministically ordered dump of the index.
func (r *Registry) String() string {
	var sb strings.Builder
	for _, module := range r.Modules() {
		fmt.Fprintf(&sb, "%s:\n", module)
		for _, p := range r.modules[module].Procs() {
			fmt.Fprintf(&sb, "  %-30s line %d\n", p, p.Line)
		}
	}
	return sb.String()
}
