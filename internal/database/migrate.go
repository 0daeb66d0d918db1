package database

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Migration is one versioned SQL script pair.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var (
	loadOnce   sync.Once
	migrations []Migration
	loadErr    error
)

// LoadMigrations parses NNNNNN_name.up.sql / .down.sql pairs from dir in fsys,
// ordered by version.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var out []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		base := strings.TrimSuffix(name, ".up.sql")
		prefix, label, ok := strings.Cut(base, "_")
		if !ok || label == "" {
			return nil, fmt.Errorf("migration %s: expected NNNNNN_name.up.sql", name)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s: invalid version %q", name, prefix)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration version %06d used by %s and %s", version, prev, name)
		}
		seen[version] = name

		up, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read up migration %s: %w", name, err)
		}
		down, err := fs.ReadFile(fsys, path.Join(dir, base+".down.sql"))
		if err != nil {
			return nil, fmt.Errorf("failed to read down migration %s.down.sql: %w", base, err)
		}

		out = append(out, Migration{
			Version:    version,
			Name:       label,
			UpScript:   string(up),
			DownScript: string(down),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// GetMigrations returns the embedded catalog migrations.
func GetMigrations() ([]Migration, error) {
	loadOnce.Do(func() {
		migrations, loadErr = LoadMigrations(migrationFS, "migrations")
	})
	return migrations, loadErr
}

// GetMigrationByVersion returns the embedded migration with version, or nil.
func GetMigrationByVersion(version int) (*Migration, error) {
	all, err := GetMigrations()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Version == version {
			m := all[i]
			return &m, nil
		}
	}
	return nil, nil
}

func (m *Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}
