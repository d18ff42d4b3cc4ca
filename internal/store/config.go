package store

// Config holds the storage options exposed to the glue layer, per
// spec.md §6. CacheSize, when nonzero, sizes an in-process LRU cache of
// decoded blocks in front of bbolt reads.
type Config struct {
	DBPath               string
	MaxOpenFiles         int
	WriteBufferSize      int
	MaxWriteBufferNumber int
	TargetFileSizeBase   int64
	CacheSize            int
}

const defaultCacheSize = 128 * 1024 * 1024

// DefaultConfig mirrors the original implementation's StorageConfig
// defaults (original_source/src/storage/mod.rs), even though several of
// these knobs (write buffers, SST target size) are RocksDB-specific and
// have no effect on the bbolt engine this store uses; they are kept so
// callers migrating configuration files don't need to special-case them.
func DefaultConfig() Config {
	return Config{
		DBPath:               "data/blocana_db",
		MaxOpenFiles:         1000,
		WriteBufferSize:      64 * 1024 * 1024,
		MaxWriteBufferNumber: 3,
		TargetFileSizeBase:   64 * 1024 * 1024,
		CacheSize:            defaultCacheSize,
	}
}
