package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type localStore struct {
	root string
}

// NewLocalStore stores documents as files under root.
func NewLocalStore(root string) (BlobStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve archive root %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create archive root %q: %w", abs, err)
	}
	return &localStore{root: abs}, nil
}

func (s *localStore) abs(p string) string {
	return filepath.Join(s.root, filepath.FromSlash(p))
}

func (s *localStore) Location(p string) string { return s.abs(p) }

func (s *localStore) Put(ctx context.Context, p string, data []byte, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := s.abs(p)
	dir := filepath.Dir(target)
	if opts.CreateDirectories {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create archive directory: %w", err)
		}
	} else if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return ErrNoParent
	}

	if !opts.Overwrite {
		// O_EXCL makes the existence check and the create one atomic step.
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			return ErrExists
		}
		if err != nil {
			return fmt.Errorf("create archive file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(target)
			return fmt.Errorf("write archive file: %w", err)
		}
		return f.Close()
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp archive file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp archive file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp archive file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace archive file: %w", err)
	}
	return nil
}

func (s *localStore) Get(ctx context.Context, p string) ([]byte, error) {
	data, err := os.ReadFile(s.abs(p))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *localStore) Delete(ctx context.Context, p string) error {
	if err := os.Remove(s.abs(p)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *localStore) Walk(ctx context.Context, fn func(p string) error) error {
	return filepath.WalkDir(s.root, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		rel, err := filepath.Rel(s.root, full)
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel))
	})
}
