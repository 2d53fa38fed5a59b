// Package flagdb holds the command flag database: for every host command, its
// flags with long and short names, argument counts and modes. The translator
// only reads it.
package flagdb

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"mel2py/pkg/mel"
)

// Mode is a bit set of the command modes a flag is valid in.
type Mode uint8

const (
	ModeCreate Mode = 1 << iota
	ModeQuery
	ModeEdit
)

var modeNames = []struct {
	mode Mode
	name string
}{
	{ModeCreate, "create"},
	{ModeQuery, "query"},
	{ModeEdit, "edit"},
}

func (m Mode) String() string {
	var parts []string
	for _, mn := range modeNames {
		if m&mn.mode != 0 {
			parts = append(parts, mn.name)
		}
	}
	return strings.Join(parts, ",")
}

// ParseMode parses a comma separated list of mode names.
func ParseMode(s string) (Mode, error) {
	var m Mode
	if s == "" {
		return m, nil
	}
	for _, part := range strings.Split(s, ",") {
		found := false
		for _, mn := range modeNames {
			if strings.TrimSpace(part) == mn.name {
				m |= mn.mode
				found = true
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown flag mode %q", part)
		}
	}
	return m, nil
}

// Flag describes one command flag.
type Flag struct {
	Name     string
	Short    string
	NumArgs  int
	Modes    Mode
	MultiUse bool
	Callback bool // the value is a script to run later
}

// Command is the flag table of one host command.
type Command struct {
	Name       string
	Returns    mel.Type // create-mode result type, None when unknown
	Flags      map[string]*Flag
	ShortFlags map[string]string // short name -> long name
}

func NewCommand(name string) *Command {
	return &Command{
		Name:       name,
		Flags:      make(map[string]*Flag),
		ShortFlags: make(map[string]string),
	}
}

// AddFlag registers f under its long and short names.
func (c *Command) AddFlag(f *Flag) {
	c.Flags[f.Name] = f
	if f.Short != "" && f.Short != f.Name {
		c.ShortFlags[f.Short] = f.Name
	}
}

// Flag resolves a flag by long or short name. A leading '-' is ignored.
func (c *Command) Flag(name string) (*Flag, bool) {
	name = strings.TrimPrefix(name, "-")
	if f, ok := c.Flags[name]; ok {
		return f, true
	}
	if long, ok := c.ShortFlags[name]; ok {
		f, ok := c.Flags[long]
		return f, ok
	}
	return nil, false
}

// Suggest returns the closest known flag name to name, or "".
func (c *Command) Suggest(name string) string {
	name = strings.TrimPrefix(name, "-")
	candidates := make([]string, 0, len(c.Flags))
	for long := range c.Flags {
		candidates = append(candidates, long)
	}
	sort.Strings(candidates)
	if len(candidates) == 0 {
		return ""
	}
	ranks := fuzzy.RankFindFold(name, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

// SortedFlags returns the flags ordered by long name.
func (c *Command) SortedFlags() []*Flag {
	out := make([]*Flag, 0, len(c.Flags))
	for _, f := range c.Flags {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DB is the flag database.
type DB struct {
	Commands map[string]*Command
	// NoPython names commands that exist only in MEL and must go through the
	// live evaluator.
	NoPython map[string]bool
}

func New() *DB {
	return &DB{
		Commands: make(map[string]*Command),
		NoPython: make(map[string]bool),
	}
}

func (db *DB) Add(cmd *Command) {
	db.Commands[cmd.Name] = cmd
}

// Command returns the flag table of name. A nil DB knows no commands.
func (db *DB) Command(name string) (*Command, bool) {
	if db == nil {
		return nil, false
	}
	cmd, ok := db.Commands[name]
	return cmd, ok
}

// HasPython reports whether name is a known command with a Python binding.
func (db *DB) HasPython(name string) bool {
	if db == nil {
		return false
	}
	_, ok := db.Commands[name]
	return ok && !db.NoPython[name]
}

// Names returns the command names in sorted order.
func (db *DB) Names() []string {
	names := make([]string, 0, len(db.Commands))
	for name := range db.Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type jsonFlag struct {
	Name     string   `json:"name"`
	Short    string   `json:"short,omitempty"`
	NumArgs  int      `json:"numArgs"`
	Modes    []string `json:"modes,omitempty"`
	MultiUse bool     `json:"multiUse,omitempty"`
	Callback bool     `json:"callback,omitempty"`
}

type jsonCommand struct {
	Returns string     `json:"returns,omitempty"`
	Flags   []jsonFlag `json:"flags"`
}

type jsonDB struct {
	Commands map[string]jsonCommand `json:"commands"`
	NoPython []string               `json:"noPython,omitempty"`
}

// LoadJSON reads a database in the JSON exchange format.
func LoadJSON(r io.Reader) (*DB, error) {
	var raw jsonDB
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode flag database: %w", err)
	}

	db := New()
	for name, jc := range raw.Commands {
		cmd := NewCommand(name)
		if jc.Returns != "" {
			typ, ok := mel.ParseType(jc.Returns)
			if !ok {
				return nil, fmt.Errorf("command %s: unknown return type %q", name, jc.Returns)
			}
			cmd.Returns = typ
		}
		for _, jf := range jc.Flags {
			if jf.Name == "" {
				return nil, fmt.Errorf("command %s: flag without a name", name)
			}
			modes, err := ParseMode(strings.Join(jf.Modes, ","))
			if err != nil {
				return nil, fmt.Errorf("command %s flag %s: %w", name, jf.Name, err)
			}
			if modes == 0 {
				modes = ModeCreate
			}
			cmd.AddFlag(&Flag{
				Name:     jf.Name,
				Short:    jf.Short,
				NumArgs:  jf.NumArgs,
				Modes:    modes,
				MultiUse: jf.MultiUse,
				Callback: jf.Callback,
			})
		}
		db.Add(cmd)
	}
	for _, name := range raw.NoPython {
		db.NoPython[name] = true
	}
	return db, nil
}

// LoadFile loads path as JSON, or as a SQLite cache when the extension is
// .db or .sqlite.
func LoadFile(path string) (*DB, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return LoadSQLite(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadJSON(f)
}

//go:embed default.json
var defaultJSON string

// Default returns the built-in database of common commands.
func Default() *DB {
	db, err := LoadJSON(strings.NewReader(defaultJSON))
	if err != nil {
		panic("flagdb: embedded database is invalid: " + err.Error())
	}
	return db
}
