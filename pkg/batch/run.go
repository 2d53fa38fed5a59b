package batch

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"mel2py/pkg/scanner"
	"mel2py/pkg/translator"
)

// Scan runs the scanner pass over every file and fills the registry, in
// the order the files were added. With a cache configured, files whose
// content is unchanged reuse their stored index.
func (c *Context) Scan() error {
	var cache *scanner.Cache
	if c.opts.CachePath != "" {
		var err error
		cache, err = scanner.OpenCache(c.opts.CachePath)
		if err != nil {
			return err
		}
		defer cache.Close()
	}

	for _, f := range c.files {
		fp, err := scanFile(cache, f)
		if err != nil {
			return err
		}
		c.Registry.Add(f.Module, fp)
	}
	names := make([]string, 0, len(c.Registry.Conflicts))
	for name := range c.Registry.Conflicts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ref, _ := c.Registry.Lookup(name)
		modules := c.Registry.Conflicts[name]
		c.warnf("global proc %s is defined in %s and %v; using %s", name, ref.Module, modules, ref.Module)
	}
	return nil
}

func scanFile(cache *scanner.Cache, f *File) (*scanner.FileProcs, error) {
	if cache == nil {
		return scanner.ScanSource(f.Source), nil
	}
	hash := scanner.HashSource([]byte(f.Source))
	fp, ok, err := cache.Get(f.Path, hash)
	if err != nil {
		return nil, fmt.Errorf("scan cache %s: %w", f.Path, err)
	}
	if ok {
		return fp, nil
	}
	fp = scanner.ScanSource(f.Source)
	if err := cache.Put(f.Path, hash, fp); err != nil {
		return nil, fmt.Errorf("scan cache %s: %w", f.Path, err)
	}
	return fp, nil
}

// Translate translates every file, at most Options.Jobs at a time, and
// stages each module on the Disk as <module>.py. A file with errors does not
// stop the others: its error lands in its FileResult and whatever partial
// output it produced is still staged. Results are in file order.
func (c *Context) Translate(ctx context.Context) ([]FileResult, error) {
	results := make([]FileResult, len(c.files))

	var g errgroup.Group
	if c.opts.Jobs > 0 {
		g.SetLimit(c.opts.Jobs)
	}
	for i, f := range c.files {
		i, f := i, f
		g.Go(func() error {
			results[i] = FileResult{File: f}
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			res, err := translator.Translate(f.Source, c.optionsFor(f), translator.Env{
				Procs:  c.Registry,
				Flags:  c.Flags,
				Module: f.Module,
			})
			results[i].Result = res
			results[i].Err = err
			if err != nil {
				c.failed.Set()
			}
			if res != nil {
				if werr := c.Disk.Write(f.Module+".py", f.Path, []byte(res.Code)); werr != nil {
					results[i].Err = fmt.Errorf("stage %s: %w", f.Module, werr)
					c.failed.Set()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Run performs a whole batch: discovery when enabled, the scan pass,
// translation, and finally persisting the staged modules to Options.OutDir.
// It returns the modules written to disk alongside the per-file results.
func (c *Context) Run(ctx context.Context) ([]FileResult, []string, error) {
	if c.opts.FollowSource {
		if err := c.Discover(); err != nil {
			return nil, nil, err
		}
	}
	if err := c.Scan(); err != nil {
		return nil, nil, err
	}
	results, err := c.Translate(ctx)
	if err != nil {
		return results, nil, err
	}
	if c.opts.OutDir == "" {
		return results, nil, nil
	}
	written, err := c.Disk.PersistTo(c.opts.OutDir)
	if err != nil {
		return results, written, fmt.Errorf("write %s: %w", c.opts.OutDir, err)
	}
	return results, written, nil
}
