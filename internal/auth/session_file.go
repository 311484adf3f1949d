package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gastos/internal/remote/supabase"
)

// SessionFile persists the backend session between runs.
type SessionFile struct {
	path string
}

func NewSessionFile(path string) *SessionFile {
	return &SessionFile{path: path}
}

// Load returns ok=false when no session has been saved.
func (f *SessionFile) Load() (supabase.AuthSession, bool, error) {
	var s supabase.AuthSession
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, false, nil
	}
	if err != nil {
		return s, false, fmt.Errorf("read session file: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, false, fmt.Errorf("decode session file: %w", err)
	}
	return s, s.AccessToken != "", nil
}

func (f *SessionFile) Save(s supabase.AuthSession) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return os.WriteFile(f.path, data, 0o600)
}

func (f *SessionFile) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
