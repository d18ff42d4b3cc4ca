// Package migration implements schema-version tracking and migration for
// the ledger store's metadata bucket, per spec.md §4.5's
// ensure_compatible_schema contract.
package migration

import (
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// SchemaVersionKey is the literal ASCII metadata key holding the current
// schema version, per spec.md §6's on-disk key layout requirement.
const SchemaVersionKey = "schema_version"

// CurrentSchemaVersion is the schema version this build writes and reads.
const CurrentSchemaVersion uint32 = 1

// MetadataBucket is the bucket name the version key lives in; it must
// match internal/store's bucketMetadata name exactly.
var MetadataBucket = []byte("metadata")

// Step is one registered migration from From to To.
type Step struct {
	From  uint32
	To    uint32
	Apply func(tx *bolt.Tx) error
}

// Registry is an ordered set of migration steps available to walk from
// an older schema version to CurrentSchemaVersion.
type Registry struct {
	steps []Step
}

// NewRegistry creates an empty migration registry.
func NewRegistry() *Registry { return &Registry{} }

// Register adds a migration step. Steps do not need to be registered in
// order; path-finding considers every registered step at each version.
func (r *Registry) Register(step Step) {
	r.steps = append(r.steps, step)
}

// path greedily walks from `from` to `to`, at each point taking the
// registered step whose From matches the current version and whose To
// is the largest value not exceeding the target (supporting
// version-skipping migrations), per spec.md §4.5.
func (r *Registry) path(from, to uint32) ([]Step, error) {
	var out []Step
	current := from
	for current != to {
		var best *Step
		for i := range r.steps {
			s := &r.steps[i]
			if s.From != current || s.To > to {
				continue
			}
			if best == nil || s.To > best.To {
				best = s
			}
		}
		if best == nil {
			return nil, fmt.Errorf("migration: no registered step from version %d toward %d", current, to)
		}
		out = append(out, *best)
		current = best.To
	}
	return out, nil
}

func readVersion(tx *bolt.Tx) (uint32, error) {
	b := tx.Bucket(MetadataBucket)
	if b == nil {
		return 0, fmt.Errorf("migration: metadata bucket missing")
	}
	v := b.Get([]byte(SchemaVersionKey))
	if v == nil {
		return 0, nil
	}
	if len(v) != 4 {
		return 0, fmt.Errorf("migration: schema_version value has invalid length %d", len(v))
	}
	return binary.LittleEndian.Uint32(v), nil
}

func writeVersion(tx *bolt.Tx, version uint32) error {
	b := tx.Bucket(MetadataBucket)
	if b == nil {
		return fmt.Errorf("migration: metadata bucket missing")
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], version)
	return b.Put([]byte(SchemaVersionKey), buf[:])
}

// BackupFunc is called before migrating, if non-nil, to snapshot the
// database. Errors abort the migration.
type BackupFunc func() error

// EnsureCompatibleSchema implements spec.md §4.5: read the stored schema
// version (absent ⇒ 0); if it equals target, return; if it exceeds
// target, fail; otherwise compute a migration path and apply it step by
// step, writing the new version atomically after each step.
func (r *Registry) EnsureCompatibleSchema(db *bolt.DB, target uint32, backup BackupFunc, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	var current uint32
	if err := db.View(func(tx *bolt.Tx) error {
		v, err := readVersion(tx)
		current = v
		return err
	}); err != nil {
		return err
	}

	if current == target {
		return nil
	}
	if current > target {
		return fmt.Errorf("migration: on-disk schema version %d is newer than supported version %d", current, target)
	}

	steps, err := r.path(current, target)
	if err != nil {
		return err
	}

	if backup != nil {
		if err := backup(); err != nil {
			return fmt.Errorf("migration: backup before migrating: %w", err)
		}
	}

	for _, step := range steps {
		logger.Info("applying schema migration", zap.Uint32("from", step.From), zap.Uint32("to", step.To))
		if err := db.Update(func(tx *bolt.Tx) error {
			if err := step.Apply(tx); err != nil {
				return err
			}
			return writeVersion(tx, step.To)
		}); err != nil {
			return fmt.Errorf("migration: step %d -> %d: %w", step.From, step.To, err)
		}
	}
	return nil
}
