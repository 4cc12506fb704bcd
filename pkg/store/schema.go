package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

//go:embed schema/*.sql
var schemaFS embed.FS

type schemaFile struct {
	Version int
	Name    string
}

// applySchema applies any embedded schema file not yet recorded in
// schema_migrations(version), in version order.
func applySchema(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	if err := ensureSchemaTable(ctx, db); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	files, err := readSchemaFiles(schemaFS, "schema")
	if err != nil {
		return fmt.Errorf("read schema files: %w", err)
	}

	applied, err := loadAppliedVersions(ctx, db)
	if err != nil {
		return fmt.Errorf("load applied versions: %w", err)
	}

	for _, f := range files {
		if applied[f.Version] {
			continue
		}
		script, err := fs.ReadFile(schemaFS, "schema/"+f.Name)
		if err != nil {
			return fmt.Errorf("read schema %s: %w", f.Name, err)
		}

		logger.Info("Applying schema", zap.Int("version", f.Version), zap.String("name", f.Name))
		if err := applySQL(ctx, db, string(script)); err != nil {
			return fmt.Errorf("apply schema %d (%s): %w", f.Version, f.Name, err)
		}
		if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO schema_migrations(version) VALUES (?)`, f.Version); err != nil {
			return fmt.Errorf("record schema %d: %w", f.Version, err)
		}
	}
	return nil
}

func ensureSchemaTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version     INTEGER PRIMARY KEY,
	applied_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`)
	return err
}

func readSchemaFiles(fsys fs.FS, dir string) ([]schemaFile, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var out []schemaFile
	seen := map[int]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".sql") {
			continue
		}
		ver, ok := parseVersionPrefix(name)
		if !ok {
			continue
		}
		if prev, dup := seen[ver]; dup {
			return nil, fmt.Errorf("duplicate schema version %d in %s and %s", ver, prev, name)
		}
		seen[ver] = name
		out = append(out, schemaFile{Version: ver, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// parseVersionPrefix reads the leading digits of "001_initial.sql".
func parseVersionPrefix(name string) (int, bool) {
	i := 0
	for i < len(name) && unicode.IsDigit(rune(name[i])) {
		i++
	}
	if i == 0 {
		return 0, false
	}
	ver, err := strconv.Atoi(name[:i])
	if err != nil {
		return 0, false
	}
	return ver, true
}

func loadAppliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// applySQL executes a script statement by statement. Explicit transaction
// control is dropped because rqlite rejects nested transactions.
func applySQL(ctx context.Context, db *sql.DB, script string) error {
	for _, stmt := range splitSQLStatements(script) {
		if isTxnControl(stmt) {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec stmt failed: %w (stmt: %s)", err, snippet(stmt))
		}
	}
	return nil
}

func isTxnControl(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BEGIN", "BEGIN TRANSACTION", "COMMIT", "END", "ROLLBACK":
		return true
	default:
		return false
	}
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}

// splitSQLStatements splits a script on semicolons outside quotes, dropping
// -- and /* */ comments.
func splitSQLStatements(in string) []string {
	var (
		out            []string
		b              strings.Builder
		inLineComment  bool
		inBlockComment bool
		inSingle       bool
		inDouble       bool
	)

	flush := func() {
		if stmt := strings.TrimSpace(b.String()); stmt != "" {
			out = append(out, stmt)
		}
		b.Reset()
	}

	runes := []rune(in)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		if inLineComment {
			if ch == '\n' {
				inLineComment = false
				b.WriteRune('\n')
			}
			continue
		}
		if inBlockComment {
			if ch == '*' && next == '/' {
				inBlockComment = false
				i++
			}
			continue
		}

		if !inSingle && !inDouble {
			if ch == '-' && next == '-' {
				inLineComment = true
				i++
				continue
			}
			if ch == '/' && next == '*' {
				inBlockComment = true
				i++
				continue
			}
			if ch == ';' {
				flush()
				continue
			}
		}

		switch {
		case ch == '\'' && !inDouble:
			if inSingle && next == '\'' {
				// escaped quote inside a literal
				b.WriteRune(ch)
				b.WriteRune(next)
				i++
				continue
			}
			inSingle = !inSingle
		case ch == '"' && !inSingle:
			if inDouble && next == '"' {
				b.WriteRune(ch)
				b.WriteRune(next)
				i++
				continue
			}
			inDouble = !inDouble
		}
		b.WriteRune(ch)
	}
	flush()
	return out
}
