package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/khoirulanam-dev/CTF-Polije/internal/model"
)

type FileStore struct {
	ledgerPath string
	statePath  string
}

func NewFileStore(ledgerPath, statePath string) *FileStore {
	return &FileStore{ledgerPath: ledgerPath, statePath: statePath}
}

func (f *FileStore) Name() string { return "file" }

func (f *FileStore) LoadLedger(_ context.Context) ([]model.Event, bool, error) {
	var out []model.Event
	ok, err := readJSON(f.ledgerPath, &out)
	return out, ok, err
}

func (f *FileStore) SaveLedger(_ context.Context, ledger []model.Event) error {
	if ledger == nil {
		ledger = []model.Event{}
	}
	return writeJSONAtomic(f.ledgerPath, ledger)
}

func (f *FileStore) LoadRender(_ context.Context) (RenderState, bool, error) {
	var st RenderState
	ok, err := readJSON(f.statePath, &st)
	return st, ok, err
}

func (f *FileStore) SaveRender(_ context.Context, st RenderState) error {
	if st.LatestIDs == nil {
		st.LatestIDs = []string{}
	}
	return writeJSONAtomic(f.statePath, st)
}

func (f *FileStore) Close() error { return nil }

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return true, nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncode, path, err)
	}
	data = append(data, '\n')
	return writeAtomic(path, data)
}

// writeAtomic replaces path via a synced temp file in the same directory, so a
// crash leaves either the old document or the new one.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrWrite, dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", ErrWrite, path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("%w: write temp for %s: %v", ErrWrite, path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync temp for %s: %v", ErrWrite, path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("%w: chmod temp for %s: %v", ErrWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp for %s: %v", ErrWrite, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: rename temp for %s: %v", ErrWrite, path, err)
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
