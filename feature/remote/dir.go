package remote

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"diary-sync/core/utils"

	"github.com/spf13/afero"
)

// DirSource keeps one file per date, "<dir>/<YYYY-MM-DD><ext>".
type DirSource struct {
	fs  afero.Fs
	dir string
	ext string
}

// NewDirSource creates a remote over a directory of fsys.
func NewDirSource(fsys afero.Fs, dir, ext string) *DirSource {
	if ext == "" {
		ext = ".txt"
	}
	return &DirSource{fs: fsys, dir: dir, ext: ext}
}

// Name implements reconcile.Source.
func (s *DirSource) Name() string {
	return "local:" + s.dir
}

// Dir returns the watched directory.
func (s *DirSource) Dir() string {
	return s.dir
}

func (s *DirSource) path(date time.Time) string {
	return filepath.Join(s.dir, utils.FormatDate(date)+s.ext)
}

// Get implements reconcile.Source.
func (s *DirSource) Get(_ context.Context, date time.Time) (string, bool, error) {
	data, err := afero.ReadFile(s.fs, s.path(date))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", s.path(date), err)
	}
	return string(data), true, nil
}

// ListDates implements reconcile.Source. A missing directory holds no dates.
func (s *DirSource) ListDates(_ context.Context) ([]time.Time, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	var dates []time.Time
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		if d, ok := utils.DateFromFilename(info.Name(), s.ext); ok {
			dates = append(dates, d)
		}
	}
	return dates, nil
}

// Put implements reconcile.Sink. The file is replaced atomically.
func (s *DirSource) Put(_ context.Context, date time.Time, text string) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.dir, err)
	}
	path := s.path(date)
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
