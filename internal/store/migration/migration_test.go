package migration

import (
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"
)

func openTestDB(t *testing.T) *bolt.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		t.Fatalf("bolt.Open: %v", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(MetadataBucket)
		return err
	}); err != nil {
		t.Fatalf("create metadata bucket: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEnsureCompatibleSchemaNoOpWhenCurrent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Update(func(tx *bolt.Tx) error { return writeVersion(tx, 3) }); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	if err := r.EnsureCompatibleSchema(db, 3, nil, nil); err != nil {
		t.Fatalf("EnsureCompatibleSchema: %v", err)
	}
}

func TestEnsureCompatibleSchemaFailsWhenNewer(t *testing.T) {
	db := openTestDB(t)
	if err := db.Update(func(tx *bolt.Tx) error { return writeVersion(tx, 5) }); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	if err := r.EnsureCompatibleSchema(db, 3, nil, nil); err == nil {
		t.Fatal("expected error when on-disk version exceeds target")
	}
}

func TestEnsureCompatibleSchemaAppliesPath(t *testing.T) {
	db := openTestDB(t)

	var applied []uint32
	r := NewRegistry()
	r.Register(Step{From: 0, To: 1, Apply: func(tx *bolt.Tx) error {
		applied = append(applied, 1)
		return nil
	}})
	r.Register(Step{From: 1, To: 2, Apply: func(tx *bolt.Tx) error {
		applied = append(applied, 2)
		return nil
	}})

	if err := r.EnsureCompatibleSchema(db, 2, nil, nil); err != nil {
		t.Fatalf("EnsureCompatibleSchema: %v", err)
	}
	if len(applied) != 2 || applied[0] != 1 || applied[1] != 2 {
		t.Errorf("applied steps = %v, want [1 2]", applied)
	}

	var final uint32
	if err := db.View(func(tx *bolt.Tx) error {
		v, err := readVersion(tx)
		final = v
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if final != 2 {
		t.Errorf("final version = %d, want 2", final)
	}
}

func TestEnsureCompatibleSchemaRunsBackupBeforeMigrating(t *testing.T) {
	db := openTestDB(t)
	r := NewRegistry()
	r.Register(Step{From: 0, To: 1, Apply: func(tx *bolt.Tx) error { return nil }})

	backedUp := false
	err := r.EnsureCompatibleSchema(db, 1, func() error {
		backedUp = true
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("EnsureCompatibleSchema: %v", err)
	}
	if !backedUp {
		t.Error("expected backup function to run before migrating")
	}
}

func TestEnsureCompatibleSchemaNoPathFails(t *testing.T) {
	db := openTestDB(t)
	r := NewRegistry() // no steps registered

	if err := r.EnsureCompatibleSchema(db, 1, nil, nil); err == nil {
		t.Fatal("expected error when no migration path exists")
	}
}
