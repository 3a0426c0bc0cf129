package auth

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "credentials.json"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestNewStore_RequiresPath(t *testing.T) {
	if _, err := NewStore(""); err == nil {
		t.Error("NewStore(\"\") error = nil, want error")
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	err := store.Save(Credentials{
		AccessToken: "tok-123",
		Username:    "ada",
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	creds, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if creds.AccessToken != "tok-123" {
		t.Errorf("AccessToken = %q, want tok-123", creds.AccessToken)
	}
	if creds.Username != "ada" {
		t.Errorf("Username = %q, want ada", creds.Username)
	}
	if creds.TokenType != "bearer" {
		t.Errorf("TokenType = %q, want bearer default", creds.TokenType)
	}
	if creds.SavedAt.IsZero() {
		t.Error("SavedAt is zero, want stamped")
	}
}

func TestStore_SaveRejectsEmptyToken(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(Credentials{Username: "ada"}); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("Save() error = %v, want ErrEmptyToken", err)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Load(); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("Load() error = %v, want ErrNotLoggedIn", err)
	}
}

func TestStore_LoadCorrupt(t *testing.T) {
	store := newTestStore(t)

	if err := os.WriteFile(store.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	if _, err := store.Load(); err == nil {
		t.Error("Load() error = nil, want decode error")
	}
}

func TestStore_Clear(t *testing.T) {
	store := newTestStore(t)

	t.Run("idempotent when logged out", func(t *testing.T) {
		if err := store.Clear(); err != nil {
			t.Errorf("Clear() error = %v, want nil", err)
		}
	})

	t.Run("removes saved credentials", func(t *testing.T) {
		if err := store.Save(Credentials{AccessToken: "tok"}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if err := store.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if _, err := store.Load(); !errors.Is(err, ErrNotLoggedIn) {
			t.Errorf("Load() after Clear error = %v, want ErrNotLoggedIn", err)
		}
	})
}

func TestStore_Token(t *testing.T) {
	store := newTestStore(t)

	t.Run("empty when logged out", func(t *testing.T) {
		tok, err := store.Token()
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if tok != "" {
			t.Errorf("Token() = %q, want empty", tok)
		}
	})

	t.Run("returns saved token", func(t *testing.T) {
		if err := store.Save(Credentials{AccessToken: "tok-xyz"}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		tok, err := store.Token()
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if tok != "tok-xyz" {
			t.Errorf("Token() = %q, want tok-xyz", tok)
		}
	})
}

func TestStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}

	store := newTestStore(t)
	if err := store.Save(Credentials{AccessToken: "tok"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if got := info.Mode().Perm(); got != 0o600 {
		t.Errorf("credentials file mode = %o, want 600", got)
	}
}
