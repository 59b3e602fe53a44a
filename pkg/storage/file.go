package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// FileSink writes each collection to <Dir>/<name> as pretty-printed JSON.
type FileSink struct {
	Dir string
}

var _ Sink = FileSink{}

// NewFileSink creates a file sink rooted at dir ("" means the working directory).
func NewFileSink(dir string) FileSink {
	return FileSink{Dir: dir}
}

// Path returns the file a collection name is written to.
func (s FileSink) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// Put writes v, fully replacing any previous file. The data goes to a
// temporary file first so a failed write never leaves a truncated file.
func (s FileSink) Put(ctx context.Context, name string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := marshalPretty(v)
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}

	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	path := s.Path(name)
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	log.Info().Str("path", path).Int("bytes", len(data)).Msg("Saved collection")
	return nil
}
