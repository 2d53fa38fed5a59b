package scanner

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"mel2py/pkg/mel"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS scan_files (
	path TEXT PRIMARY KEY,
	hash TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS scan_procs (
	path   TEXT NOT NULL,
	seq    INTEGER NOT NULL,
	name   TEXT NOT NULL,
	ret    TEXT NOT NULL,
	args   TEXT NOT NULL,
	global INTEGER NOT NULL,
	line   INTEGER NOT NULL,
	PRIMARY KEY (path, seq)
);
`

// Cache persists per-file procedure indexes in a SQLite database, keyed by
// path and content hash, so unchanged files are not rescanned. A Cache is
// not safe for concurrent use.
type Cache struct {
	conn          *sqlite.Conn
	stmtFileHash  *sqlite.Stmt
	stmtLoadProcs *sqlite.Stmt
	stmtPutFile   *sqlite.Stmt
	stmtDelProcs  *sqlite.Stmt
	stmtPutProc   *sqlite.Stmt
}

// HashSource returns the hex blake3 digest of a source file's content.
func HashSource(src []byte) string {
	sum := blake3.Sum256(src)
	return hex.EncodeToString(sum[:])
}

// OpenCache opens or creates the cache database at path. ":memory:" gives a
// throwaway cache.
func OpenCache(path string) (*Cache, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("open scan cache %s: %w", path, err)
	}
	if err := sqlitex.ExecuteScript(conn, cacheSchema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create scan cache schema: %w", err)
	}

	c := &Cache{conn: conn}
	prepared := []struct {
		dst   **sqlite.Stmt
		query string
	}{
		{&c.stmtFileHash, "SELECT hash FROM scan_files WHERE path = $path;"},
		{&c.stmtLoadProcs, "SELECT name, ret, args, global, line FROM scan_procs WHERE path = $path ORDER BY seq;"},
		{&c.stmtPutFile, "INSERT INTO scan_files (path, hash) VALUES ($path, $hash) " +
			"ON CONFLICT(path) DO UPDATE SET hash = $hash;"},
		{&c.stmtDelProcs, "DELETE FROM scan_procs WHERE path = $path;"},
		{&c.stmtPutProc, "INSERT INTO scan_procs (path, seq, name, ret, args, global, line) " +
			"VALUES ($path, $seq, $name, $ret, $args, $global, $line);"},
	}
	for _, p := range prepared {
		stmt, err := conn.Prepare(p.query)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("prepare scan cache statement: %w", err)
		}
		*p.dst = stmt
	}
	return c, nil
}

func (c *Cache) Close() error {
	return c.conn.Close()
}

// Get returns the cached index for path if it was stored with the same hash.
func (c *Cache) Get(path, hash string) (*FileProcs, bool, error) {
	c.stmtFileHash.SetText("$path", path)
	hasRow, err := c.stmtFileHash.Step()
	if err != nil {
		c.stmtFileHash.Reset()
		return nil, false, err
	}
	stored := ""
	if hasRow {
		stored = c.stmtFileHash.GetText("hash")
	}
	if err := c.stmtFileHash.Reset(); err != nil {
		return nil, false, err
	}
	if !hasRow || stored != hash {
		return nil, false, nil
	}

	fp := NewFileProcs()
	stmt := c.stmtLoadProcs
	defer stmt.Reset()
	stmt.SetText("$path", path)
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, false, err
		}
		if !hasRow {
			break
		}
		ret, _ := mel.ParseType(stmt.GetText("ret"))
		args, err := decodeArgs(stmt.GetText("args"))
		if err != nil {
			return nil, false, fmt.Errorf("scan cache entry for %s: %w", path, err)
		}
		fp.Add(ProcInfo{
			Name:       stmt.GetText("name"),
			ReturnType: ret,
			Args:       args,
			Global:     stmt.GetInt64("global") != 0,
			Line:       int(stmt.GetInt64("line")),
		})
	}
	return fp, true, nil
}

// Put replaces the cached index of path.
func (c *Cache) Put(path, hash string, fp *FileProcs) (err error) {
	defer sqlitex.Save(c.conn)(&err)

	if err := c.exec(c.stmtDelProcs, func(s *sqlite.Stmt) {
		s.SetText("$path", path)
	}); err != nil {
		return err
	}
	if err := c.exec(c.stmtPutFile, func(s *sqlite.Stmt) {
		s.SetText("$path", path)
		s.SetText("$hash", hash)
	}); err != nil {
		return err
	}
	for seq, p := range fp.Procs() {
		global := int64(0)
		if p.Global {
			global = 1
		}
		if err := c.exec(c.stmtPutProc, func(s *sqlite.Stmt) {
			s.SetText("$path", path)
			s.SetInt64("$seq", int64(seq))
			s.SetText("$name", p.Name)
			s.SetText("$ret", p.ReturnType.String())
			s.SetText("$args", encodeArgs(p.Args))
			s.SetInt64("$global", global)
			s.SetInt64("$line", int64(p.Line))
		}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) exec(stmt *sqlite.Stmt, bind func(*sqlite.Stmt)) error {
	bind(stmt)
	_, err := stmt.Step()
	if rerr := stmt.Reset(); err == nil {
		err = rerr
	}
	return err
}

// encodeArgs stores "int a,string[] b".
func encodeArgs(args []Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Type.String() + " " + a.Name
	}
	return strings.Join(parts, ",")
}

func decodeArgs(s string) ([]Arg, error) {
	if s == "" {
		return nil, nil
	}
	var args []Arg
	for _, part := range strings.Split(s, ",") {
		typName, name, ok := strings.Cut(part, " ")
		typ, known := mel.ParseType(typName)
		if !ok || !known {
			return nil, fmt.Errorf("malformed argument %q", part)
		}
		args = append(args, Arg{Name: name, Type: typ})
	}
	return args, nil
}
