package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/store"
)

// FileStore keeps the snapshot in a single JSON file. Saves write a
// temporary file next to the target and rename it into place, so a crash
// mid-write leaves the previous snapshot intact.
type FileStore struct {
	Path string
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (f *FileStore) Load(ctx context.Context) (store.Snapshot, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return store.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return store.Snapshot{}, domain.External("file", "load", err)
	}
	return Decode(data)
}

func (f *FileStore) Save(ctx context.Context, s store.Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := writeAtomic(f.Path, data); err != nil {
		return domain.External("file", "save", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
