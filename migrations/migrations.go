// Package migrations holds the schema as embedded SQL files and applies them in order.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionUp, DirectionDown:
		return Direction(s), nil
	}
	return "", fmt.Errorf("direction must be 'up' or 'down', got %q", s)
}

// Files returns the migration file names for a direction, in the order they must run.
// Down migrations run in reverse.
func Files(direction Direction) ([]string, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, fmt.Errorf("read migration directory: %w", err)
	}

	suffix := fmt.Sprintf(".%s.sql", direction)
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)
	if direction == DirectionDown {
		for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
			names[i], names[j] = names[j], names[i]
		}
	}

	return names, nil
}

// Run executes every migration for the direction and returns the names it applied.
func Run(ctx context.Context, db *sql.DB, direction Direction) ([]string, error) {
	names, err := Files(direction)
	if err != nil {
		return nil, err
	}

	for i, name := range names {
		content, err := files.ReadFile(name)
		if err != nil {
			return names[:i], fmt.Errorf("read migration file %s: %w", name, err)
		}

		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return names[:i], fmt.Errorf("execute migration %s: %w", name, err)
		}
	}

	return names, nil
}

func Up(ctx context.Context, db *sql.DB) error {
	_, err := Run(ctx, db, DirectionUp)
	return err
}

func Down(ctx context.Context, db *sql.DB) error {
	_, err := Run(ctx, db, DirectionDown)
	return err
}
