package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"agentwire/internal/domain"
	"agentwire/internal/services/session"
)

const (
	identityFile   = "identity.json"
	checkpointFile = "sessions.json"
)

// ErrNotFound reports that the requested file does not exist yet.
var ErrNotFound = errors.New("store: not found")

// File persists sealed blobs under a home directory.
type File struct {
	home       string
	passphrase string
}

// NewFile opens (creating if needed) the store rooted at home.
func NewFile(home, passphrase string) (*File, error) {
	if err := os.MkdirAll(home, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &File{home: home, passphrase: passphrase}, nil
}

// SaveIdentity seals the local identity, private halves included, to disk.
func (f *File) SaveIdentity(id domain.Identity) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return f.write(identityFile, raw)
}

// LoadIdentity unseals the local identity. ErrNotFound means no identity has
// been generated yet.
func (f *File) LoadIdentity() (domain.Identity, error) {
	raw, err := f.read(identityFile)
	if err != nil {
		return domain.Identity{}, err
	}
	var id domain.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return domain.Identity{}, fmt.Errorf("decode identity: %w", err)
	}
	return id, nil
}

// HasIdentity reports whether an identity file exists.
func (f *File) HasIdentity() bool {
	_, err := os.Stat(filepath.Join(f.home, identityFile))
	return err == nil
}

// SaveCheckpoint seals the session snapshots to disk, replacing any previous
// checkpoint.
func (f *File) SaveCheckpoint(snaps []session.EntrySnapshot) error {
	raw, err := json.Marshal(snaps)
	if err != nil {
		return err
	}
	return f.write(checkpointFile, raw)
}

// LoadCheckpoint unseals the last checkpoint. ErrNotFound means none exists.
func (f *File) LoadCheckpoint() ([]session.EntrySnapshot, error) {
	raw, err := f.read(checkpointFile)
	if err != nil {
		return nil, err
	}
	var snaps []session.EntrySnapshot
	if err := json.Unmarshal(raw, &snaps); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return snaps, nil
}

// write seals raw and writes it atomically via a temp file rename.
func (f *File) write(name string, raw []byte) error {
	sealed, err := seal(f.passphrase, raw)
	if err != nil {
		return err
	}
	path := filepath.Join(f.home, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (f *File) read(name string) ([]byte, error) {
	sealed, err := os.ReadFile(filepath.Join(f.home, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return unseal(f.passphrase, sealed)
}
