// Command mel2py translates MEL scripts into Python modules.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"git.sr.ht/~sircmpwn/getopt"
	"github.com/fatih/color"

	"mel2py/pkg/batch"
	"mel2py/pkg/mel"
	"mel2py/pkg/translator"
)

const usage = `usage: mel2py [options] file.mel...
       mel2py -e [options] expression

options:
  -o DIR    write modules into DIR (default: print them)
  -n NS     namespace of the host API (default: pm, "" for none)
  -j N      translate N files at once (default: all)
  -f FILE   flag database, JSON or SQLite
  -c FILE   SQLite scan cache
  -d MODE   do-while rendering: guard or dup
  -s        strict lexing: stop on unknown characters
  -S        follow source statements
  -N        no import header
  -e        translate a single expression
  -t        dump tokens and the procedure index, then exit
  -h        show this help
`

var (
	errColor  = color.New(color.FgRed)
	warnColor = color.New(color.FgYellow)
	okColor   = color.New(color.FgGreen)
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

type config struct {
	batch      batch.Options
	expression bool
	dumpTokens bool
}

func parseArgs(args []string) (*config, []string, error) {
	cfg := &config{batch: batch.Options{Translator: translator.DefaultOptions()}}

	opts, optind, err := getopt.Getopts(args, "o:n:j:f:c:d:sSNeth")
	if err != nil {
		return nil, nil, err
	}
	for _, opt := range opts {
		switch opt.Option {
		case 'o':
			cfg.batch.OutDir = opt.Value
		case 'n':
			cfg.batch.Translator.Namespace = opt.Value
		case 'j':
			n, err := strconv.Atoi(opt.Value)
			if err != nil || n < 0 {
				return nil, nil, fmt.Errorf("invalid -j value %q", opt.Value)
			}
			cfg.batch.Jobs = n
		case 'f':
			cfg.batch.FlagDBPath = opt.Value
		case 'c':
			cfg.batch.CachePath = opt.Value
		case 'd':
			mode, err := translator.ParseDoWhileMode(opt.Value)
			if err != nil {
				return nil, nil, err
			}
			cfg.batch.Translator.DoWhile = mode
		case 's':
			cfg.batch.Translator.StrictLex = true
		case 'S':
			cfg.batch.FollowSource = true
		case 'N':
			cfg.batch.Translator.Header = false
		case 'e':
			cfg.expression = true
		case 't':
			cfg.dumpTokens = true
		case 'h':
			return nil, nil, errHelp
		}
	}
	return cfg, args[optind:], nil
}

var errHelp = errors.New("help requested")

func run(args []string, stdout, stderr io.Writer) int {
	cfg, rest, err := parseArgs(args)
	if errors.Is(err, errHelp) {
		fmt.Fprint(stdout, usage)
		return 0
	}
	if err != nil {
		errColor.Fprintln(stderr, err)
		fmt.Fprint(stderr, usage)
		return 2
	}
	if len(rest) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	if cfg.expression {
		return runExpression(cfg, strings.Join(rest, " "), stdout, stderr)
	}

	b, err := batch.New(cfg.batch)
	if err != nil {
		errColor.Fprintln(stderr, err)
		return 1
	}
	for _, path := range rest {
		if _, err := b.AddFile(path); err != nil {
			errColor.Fprintln(stderr, err)
			return 1
		}
	}

	if cfg.dumpTokens {
		return dumpTokens(b, stdout, stderr)
	}

	results, written, err := b.Run(context.Background())
	for _, w := range b.Warnings {
		warnColor.Fprintln(stderr, "warning:", w)
	}
	report(results, stderr)
	if err != nil {
		errColor.Fprintln(stderr, err)
		return 1
	}

	if cfg.batch.OutDir == "" {
		printModules(b, stdout)
	} else {
		okColor.Fprintf(stderr, "translated %d file(s), wrote %d module(s) to %s\n", len(results), len(written), cfg.batch.OutDir)
	}
	if b.Failed() {
		return 1
	}
	return 0
}

// report prints the diagnostics of each file.
func report(results []batch.FileResult, w io.Writer) {
	for _, r := range results {
		if r.Result != nil {
			for _, warn := range r.Result.Warnings {
				warnColor.Fprintf(w, "%s: warning: %s\n", r.File.Path, warn)
			}
		}
		var mpe *translator.MelParseError
		switch {
		case errors.As(r.Err, &mpe):
			for _, e := range mpe.Errors {
				errColor.Fprintf(w, "%s: %s\n", r.File.Path, e)
			}
		case r.Err != nil:
			errColor.Fprintf(w, "%s: %v\n", r.File.Path, r.Err)
		}
	}
}

func printModules(b *batch.Context, w io.Writer) {
	for i, name := range b.Disk.List() {
		code, err := b.Disk.Read(name)
		if err != nil {
			continue
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		src, _ := b.Disk.SourceOf(name)
		fmt.Fprintf(w, "# --- %s (from %s) ---\n", name, src)
		fmt.Fprint(w, string(code))
	}
}

func runExpression(cfg *config, src string, stdout, stderr io.Writer) int {
	b, err := batch.New(cfg.batch)
	if err != nil {
		errColor.Fprintln(stderr, err)
		return 1
	}
	code, err := translator.TranslateExpression(src, cfg.batch.Translator, translator.Env{Flags: b.Flags})
	if err != nil {
		errColor.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, code)
	return 0
}

func dumpTokens(b *batch.Context, stdout, stderr io.Writer) int {
	status := 0
	for _, f := range b.Files() {
		tokens, errs := mel.Lex(f.Source)
		fmt.Fprintf(stdout, "%s: tokens (%d)\n", f.Path, len(tokens))
		for _, tok := range tokens {
			fmt.Fprintln(stdout, " ", tok)
		}
		for _, e := range errs {
			errColor.Fprintf(stderr, "%s: %v\n", f.Path, e)
			status = 1
		}
		fmt.Fprintln(stdout)
	}

	if err := b.Scan(); err != nil {
		errColor.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "Procedures (index %016x)\n", b.Registry.Fingerprint())
	fmt.Fprint(stdout, b.Registry)
	return status
}
