package snapshot_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recall/internal/database"
	"recall/internal/encryption"
	"recall/internal/snapshot"
	"recall/internal/testutil"
	"recall/internal/vault"
)

type fileSource struct{ data []byte }

func (s fileSource) Snapshot(_ context.Context, dest string) error {
	return os.WriteFile(dest, s.data, 0600)
}

func TestManager_CreateList(t *testing.T) {
	clock := testutil.FixedClock()
	v := vault.NewMemoryVault("mem")
	m := snapshot.NewManager(fileSource{data: []byte("db bytes")}, v, encryption.PlainEncryptor{}, "inst-1", clock, nil)
	ctx := t.Context()

	first, err := m.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first != "20240115T103000Z.db.age" {
		t.Errorf("name = %q", first)
	}

	clock.Advance(time.Hour)
	second, err := m.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Another instance and stray files never show up.
	if err := v.Put(ctx, "snapshots/inst-2/20250101T000000Z.db.age", strings.NewReader("x"), 1); err != nil {
		t.Fatal(err)
	}
	if err := v.Put(ctx, "snapshots/inst-1/notes.txt", strings.NewReader("x"), 1); err != nil {
		t.Fatal(err)
	}

	names, err := m.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 2 || names[0] != second || names[1] != first {
		t.Errorf("List() = %v, want [%s %s]", names, second, first)
	}

	var stored bytes.Buffer
	if err := v.Get(ctx, "snapshots/inst-1/"+first, &stored); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if bytes.Equal(stored.Bytes(), []byte("db bytes")) {
		t.Error("vault holds the unsealed database")
	}
}

func TestManager_RestoreDatabase(t *testing.T) {
	env := testutil.NewEnv(t, nil)
	userID, _ := env.SignUp(t, "ada@example.com")
	ctx := t.Context()

	m := snapshot.NewManager(env.DB, vault.NewMemoryVault("mem"), encryption.PlainEncryptor{}, "inst", env.Clock, nil)
	name, err := m.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dest := filepath.Join(t.TempDir(), "restored", "recall.db")
	if err := m.Restore(ctx, name, "any", dest); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	restored, err := database.NewSQLiteDatabase(dest, 1)
	if err != nil {
		t.Fatalf("opening restored database: %v", err)
	}
	t.Cleanup(func() { restored.Close() })

	user, err := restored.FindUserByID(ctx, userID)
	if err != nil || user == nil {
		t.Fatalf("FindUserByID() = %v, %v", user, err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("Email = %q", user.Email)
	}

	t.Run("refuses to overwrite", func(t *testing.T) {
		if err := m.Restore(ctx, name, "any", dest); err == nil {
			t.Error("Restore() over an existing file error = nil")
		}
	})

	t.Run("unknown snapshot", func(t *testing.T) {
		other := filepath.Join(t.TempDir(), "x.db")
		if err := m.Restore(ctx, "19990101T000000Z.db.age", "any", other); err == nil {
			t.Error("Restore(unknown) error = nil")
		}
		if _, err := os.Stat(other); !os.IsNotExist(err) {
			t.Error("failed restore left a file behind")
		}
	})

	t.Run("invalid name", func(t *testing.T) {
		if err := m.Restore(ctx, "../escape", "any", filepath.Join(t.TempDir(), "y.db")); err == nil {
			t.Error("Restore(../escape) error = nil")
		}
	})
}

func TestManager_AgeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	enc := encryption.NewAgeEncryptor(configFor(dir))
	v := vault.NewMemoryVault("mem")
	m := snapshot.NewManager(fileSource{data: []byte("payload")}, v, enc, "inst", testutil.FixedClock(), nil)
	ctx := t.Context()

	if _, err := m.Create(ctx); err == nil {
		t.Fatal("Create() before keys init error = nil")
	}
	if err := enc.Setup("hunter2"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	name, err := m.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := m.Restore(ctx, name, "wrong", filepath.Join(dir, "bad.db")); err == nil {
		t.Error("Restore() with wrong passphrase error = nil")
	}

	dest := filepath.Join(dir, "good.db")
	if err := m.Restore(ctx, name, "hunter2", dest); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	got, _ := os.ReadFile(dest)
	if string(got) != "payload" {
		t.Errorf("restored = %q, want payload", got)
	}
}
