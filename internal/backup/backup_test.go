package backup

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/HerbHall/netcollect/internal/rrd"
	"github.com/HerbHall/netcollect/internal/store"
	"github.com/HerbHall/netcollect/internal/testutil"
	"github.com/HerbHall/netcollect/pkg/collection"
	"go.uber.org/zap"
)

// seedArchive creates an archive database holding one stored sample.
func seedArchive(t *testing.T, path string) {
	t.Helper()
	ctx := context.Background()
	db, err := store.New(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()

	a, err := rrd.New(ctx, db, rrd.DefaultConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("rrd.New: %v", err)
	}
	res := testutil.NewResource(testutil.WithResourceID("r1"))
	set := collection.NewResourceSet(res)
	if _, err := set.Add(collection.NewAttributeType("requests", "counter", ""), "42"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	samples, err := set.Normalize(ctx, nil, 1)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if _, err := a.Persist(ctx, samples, time.Unix(0, 0)); err != nil {
		t.Fatalf("Persist: %v", err)
	}
}

func TestBackupRestore(t *testing.T) {
	src := t.TempDir()
	dbPath := filepath.Join(src, "netcollect.db")
	cfgPath := filepath.Join(src, "netcollect.yaml")
	seedArchive(t, dbPath)
	if err := os.WriteFile(cfgPath, []byte("server:\n  port: 9000\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	archive := filepath.Join(t.TempDir(), "backup.tar.gz")
	if err := Backup(context.Background(), dbPath, cfgPath, archive); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	dst := t.TempDir()
	if err := Restore(context.Background(), archive, dst, false); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "netcollect.yaml")); err != nil {
		t.Errorf("config not restored: %v", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dst, "netcollect.db"))
	if err != nil {
		t.Fatalf("open restored db: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM rrd_points").Scan(&n); err != nil {
		t.Fatalf("query restored db: %v", err)
	}
	if n != 1 {
		t.Errorf("restored points = %d, want 1", n)
	}
}

func TestRestore_RefusesOverwrite(t *testing.T) {
	src := t.TempDir()
	dbPath := filepath.Join(src, "netcollect.db")
	seedArchive(t, dbPath)
	archive := filepath.Join(t.TempDir(), "backup.tar.gz")
	if err := Backup(context.Background(), dbPath, "", archive); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	dst := t.TempDir()
	if err := os.WriteFile(filepath.Join(dst, "netcollect.db"), []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := Restore(context.Background(), archive, dst, false)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("Restore without force = %v, want ErrExists", err)
	}
	if err := Restore(context.Background(), archive, dst, true); err != nil {
		t.Fatalf("Restore with force: %v", err)
	}
	info, err := os.Stat(filepath.Join(dst, "netcollect.db"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() <= 3 {
		t.Errorf("database was not overwritten, size = %d", info.Size())
	}
}

func TestBackup_MissingDatabase(t *testing.T) {
	err := Backup(context.Background(), filepath.Join(t.TempDir(), "nope.db"), "", filepath.Join(t.TempDir(), "out.tar.gz"))
	if err == nil {
		t.Fatal("expected error for missing database")
	}
}
