package flagdb

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"mel2py/pkg/mel"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS commands (
	name      TEXT PRIMARY KEY,
	returns   TEXT NOT NULL,
	no_python INTEGER NOT NULL,
	known     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS flags (
	command   TEXT NOT NULL,
	name      TEXT NOT NULL,
	short     TEXT NOT NULL,
	num_args  INTEGER NOT NULL,
	modes     INTEGER NOT NULL,
	multi_use INTEGER NOT NULL,
	callback  INTEGER NOT NULL,
	PRIMARY KEY (command, name)
);
`

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// SaveSQLite writes db to a SQLite file, replacing its previous content.
func (db *DB) SaveSQLite(path string) (err error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate)
	if err != nil {
		return fmt.Errorf("open flag database %s: %w", path, err)
	}
	defer conn.Close()

	if err := sqlitex.ExecuteScript(conn, sqliteSchema, nil); err != nil {
		return fmt.Errorf("create flag database schema: %w", err)
	}

	defer sqlitex.Save(conn)(&err)

	if err := sqlitex.ExecuteTransient(conn, "DELETE FROM flags;", nil); err != nil {
		return err
	}
	if err := sqlitex.ExecuteTransient(conn, "DELETE FROM commands;", nil); err != nil {
		return err
	}

	// A NoPython entry may name a command without flags.
	names := db.Names()
	for name := range db.NoPython {
		if _, ok := db.Commands[name]; !ok {
			names = append(names, name)
		}
	}

	for _, name := range names {
		returns := mel.None
		cmd, known := db.Commands[name]
		if known {
			returns = cmd.Returns
		}
		err := sqlitex.Execute(conn, "INSERT INTO commands (name, returns, no_python, known) VALUES (?, ?, ?, ?);",
			&sqlitex.ExecOptions{Args: []any{name, returns.String(), boolInt(db.NoPython[name]), boolInt(known)}})
		if err != nil {
			return fmt.Errorf("store command %s: %w", name, err)
		}
		if !known {
			continue
		}
		for _, f := range cmd.SortedFlags() {
			err := sqlitex.Execute(conn,
				"INSERT INTO flags (command, name, short, num_args, modes, multi_use, callback) VALUES (?, ?, ?, ?, ?, ?, ?);",
				&sqlitex.ExecOptions{Args: []any{name, f.Name, f.Short, f.NumArgs, int64(f.Modes), boolInt(f.MultiUse), boolInt(f.Callback)}})
			if err != nil {
				return fmt.Errorf("store flag %s.%s: %w", name, f.Name, err)
			}
		}
	}
	return nil
}

// LoadSQLite reads a database written by SaveSQLite.
func LoadSQLite(path string) (*DB, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		return nil, fmt.Errorf("open flag database %s: %w", path, err)
	}
	defer conn.Close()

	db := New()
	err = sqlitex.ExecuteTransient(conn, "SELECT name, returns, no_python, known FROM commands;", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			name := stmt.GetText("name")
			if stmt.GetInt64("no_python") != 0 {
				db.NoPython[name] = true
			}
			if stmt.GetInt64("known") == 0 {
				return nil
			}
			cmd := NewCommand(name)
			cmd.Returns, _ = mel.ParseType(stmt.GetText("returns"))
			db.Add(cmd)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load commands: %w", err)
	}

	err = sqlitex.ExecuteTransient(conn, "SELECT command, name, short, num_args, modes, multi_use, callback FROM flags;", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			cmd, ok := db.Commands[stmt.GetText("command")]
			if !ok {
				return fmt.Errorf("flag %s refers to unknown command %s", stmt.GetText("name"), stmt.GetText("command"))
			}
			cmd.AddFlag(&Flag{
				Name:     stmt.GetText("name"),
				Short:    stmt.GetText("short"),
				NumArgs:  int(stmt.GetInt64("num_args")),
				Modes:    Mode(stmt.GetInt64("modes")),
				MultiUse: stmt.GetInt64("multi_use") != 0,
				Callback: stmt.GetInt64("callback") != 0,
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load flags: %w", err)
	}
	return db, nil
}
