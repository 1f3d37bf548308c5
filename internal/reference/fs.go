package reference

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vitalog-lab/vitalog/internal/core/record"
)

// FileSystemStore loads the exercise reference catalog from *.yaml files in a
// directory. Each file holds one category with its types. The catalog is
// loaded once at startup and cached in memory — no hot reload.
//
// Deployments without a database-backed catalog (development, tests) run on
// this store instead of the postgres one.
type FileSystemStore struct {
	dir        string
	types      []record.ExerciseType
	categories []record.ExerciseCategory
}

// rawCategory is the on-disk YAML shape.
type rawCategory struct {
	ID    int64  `yaml:"id"`
	Name  string `yaml:"name"`
	Types []struct {
		ID                int64  `yaml:"id"`
		Name              string `yaml:"name"`
		CaloriesPerMinute int32  `yaml:"calories_per_minute"`
	} `yaml:"types"`
}

// NewFileSystemStore creates a store and eagerly loads all category files
// from dir. Returns an error if any file is malformed or ids collide.
func NewFileSystemStore(dir string) (*FileSystemStore, error) {
	s := &FileSystemStore{dir: dir}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSystemStore) load() error {
	info, err := os.Stat(s.dir)
	if os.IsNotExist(err) {
		return nil // no catalog directory — valid (empty catalog)
	}
	if err != nil {
		return fmt.Errorf("reference catalog dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("reference catalog path %q is not a directory", s.dir)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading reference catalog dir: %w", err)
	}

	seenCategories := make(map[int64]string)
	seenTypes := make(map[int64]string)

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(s.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading catalog file %s: %w", path, err)
		}

		var raw rawCategory
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing catalog file %s: %w", path, err)
		}
		if raw.Name == "" {
			continue // skip empty / comment-only files
		}
		if raw.ID <= 0 {
			return fmt.Errorf("category %q: id must be positive", raw.Name)
		}
		if prev, exists := seenCategories[raw.ID]; exists {
			return fmt.Errorf("category %q: id %d already used by %q", raw.Name, raw.ID, prev)
		}
		seenCategories[raw.ID] = raw.Name
		s.categories = append(s.categories, record.ExerciseCategory{ID: raw.ID, Name: raw.Name})

		for _, t := range raw.Types {
			if t.ID <= 0 {
				return fmt.Errorf("category %q: type %q id must be positive", raw.Name, t.Name)
			}
			if prev, exists := seenTypes[t.ID]; exists {
				return fmt.Errorf("category %q: type id %d already used by %q", raw.Name, t.ID, prev)
			}
			seenTypes[t.ID] = t.Name
			s.types = append(s.types, record.ExerciseType{
				ID:                t.ID,
				CategoryID:        raw.ID,
				Name:              t.Name,
				CaloriesPerMinute: t.CaloriesPerMinute,
			})
		}
	}

	sort.Slice(s.categories, func(i, j int) bool { return s.categories[i].ID < s.categories[j].ID })
	sort.Slice(s.types, func(i, j int) bool { return s.types[i].ID < s.types[j].ID })
	return nil
}

// ListTypes returns all loaded exercise types ordered by id.
func (s *FileSystemStore) ListTypes(_ context.Context) ([]record.ExerciseType, error) {
	return append([]record.ExerciseType(nil), s.types...), nil
}

// ListCategories returns all loaded categories ordered by id.
func (s *FileSystemStore) ListCategories(_ context.Context) ([]record.ExerciseCategory, error) {
	return append([]record.ExerciseCategory(nil), s.categories...), nil
}
