// Package fsstore is a blockstore keeping one file per block in a directory.
package fsstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	blocks "github.com/ipfs/go-block-format"
	cid "github.com/ipfs/go-cid"
	"golang.org/x/xerrors"
)

// ErrNotFound is returned by Get and ReadRoot for missing entries.
var ErrNotFound = errors.New("block not found")

const rootFile = "ROOT"

type Store struct {
	dir string
}

// Open returns a Store over dir, creating it if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) path(c cid.Cid) string {
	return filepath.Join(s.dir, c.String())
}

func (s *Store) Get(ctx context.Context, c cid.Cid) (blocks.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(c))
	if errors.Is(err, os.ErrNotExist) {
		return nil, xerrors.Errorf("%s: %w", c, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return blocks.NewBlockWithCid(data, c)
}

// Put stores b unless a block with its CID is already present.
func (s *Store) Put(ctx context.Context, b blocks.Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := s.path(b.Cid())
	if _, err := os.Stat(p); err == nil {
		return nil
	}
	return writeFile(p, b.RawData())
}

func (s *Store) Has(_ context.Context, c cid.Cid) (bool, error) {
	_, err := os.Stat(s.path(c))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// WriteRoot records c as the store's root.
func (s *Store) WriteRoot(c cid.Cid) error {
	return writeFile(filepath.Join(s.dir, rootFile), []byte(c.String()+"\n"))
}

// ReadRoot returns the CID last passed to WriteRoot.
func (s *Store) ReadRoot() (cid.Cid, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, rootFile))
	if errors.Is(err, os.ErrNotExist) {
		return cid.Undef, xerrors.Errorf("root of %s: %w", s.dir, ErrNotFound)
	}
	if err != nil {
		return cid.Undef, err
	}
	c, err := cid.Decode(strings.TrimSpace(string(data)))
	if err != nil {
		return cid.Undef, xerrors.Errorf("root of %s: %w", s.dir, err)
	}
	return c, nil
}

// writeFile replaces p through a rename so readers never see a partial file.
func writeFile(p string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, p)
}
