package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode"
)

// versionLayout orders migrations by creation time when sorted as text
const versionLayout = "20060102150405"

// Pair is one up/down migration on disk
type Pair struct {
	Version  string
	Name     string
	UpPath   string
	DownPath string
}

// ErrDuplicateName means a migration with the same name already exists
var ErrDuplicateName = errors.New("migration name already used")

// Create writes an empty up/down pair named after name into dir, versioned at now.
// Names are reduced to lowercase words joined by underscores.
func Create(dir, name, description string, now time.Time) (*Pair, error) {
	slug := slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no letters or digits", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}

	existing, err := List(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	for _, base := range existing {
		if _, n, _ := strings.Cut(base, "_"); n == slug {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, base)
		}
	}

	version := now.UTC().Format(versionLayout)
	base := filepath.Join(dir, version+"_"+slug)
	p := &Pair{
		Version:  version,
		Name:     slug,
		UpPath:   base + ".up.sql",
		DownPath: base + ".down.sql",
	}

	header := fmt.Sprintf("-- %s (%s)\n", slug, now.UTC().Format(time.RFC3339))
	if description != "" {
		header += "-- " + description + "\n"
	}
	if err := writeNew(p.UpPath, header+"\n"); err != nil {
		return nil, err
	}
	if err := writeNew(p.DownPath, header+"-- reverts the up migration\n\n"); err != nil {
		_ = os.Remove(p.UpPath)
		return nil, err
	}
	return p, nil
}

// writeNew refuses to overwrite an existing file
func writeNew(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func slugify(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	})
	for i, w := range words {
		words[i] = strings.Map(func(r rune) rune {
			if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
				return r
			}
			return -1
		}, w)
	}
	words = slices.DeleteFunc(words, func(w string) bool { return w == "" })
	return strings.Join(words, "_")
}

// List returns the base names of the up migrations at the root of fsys, oldest first
func List(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var names []string
	for _, e := range entries {
		if base, ok := strings.CutSuffix(e.Name(), ".up.sql"); ok && !e.IsDir() && base != "" {
			names = append(names, base)
		}
	}
	slices.Sort(names)
	return names, nil
}
