// Package store implements the durable ledger: blocks, the height and
// timestamp indices, transaction locations, and account state, realized
// as bbolt buckets standing in for the original RocksDB column families
// (original_source/src/storage/mod.rs). Its constructor/Close shape
// follows a BoltStore(path, logger) idiom found in an orphaned test for
// a share-accounting store of the same shape, generalized here to the
// ledger rather than share accounting (see DESIGN.md).
package store

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"blocana/internal/block"
	"blocana/internal/crypto"
	"blocana/internal/mempool/poolerr"
	"blocana/internal/state"
	"blocana/internal/txn"
)

var (
	bucketBlocks         = []byte("blocks")
	bucketBlockHeight    = []byte("block_height")
	bucketTransactions   = []byte("transactions")
	bucketAccountState   = []byte("account_state")
	bucketTimestampIndex = []byte("timestamp_index")
	bucketMetadata       = []byte("metadata")

	allBuckets = [][]byte{
		bucketBlocks, bucketBlockHeight, bucketTransactions,
		bucketAccountState, bucketTimestampIndex, bucketMetadata,
	}
)

// Store is the durable ledger store. It wraps a single bbolt database
// file; bbolt serializes writes internally and allows concurrent reads,
// so Store itself needs no additional locking (spec.md §5).
type Store struct {
	db     *bolt.DB
	logger *zap.Logger
	cache  *lru.Cache[crypto.Hash, *block.Block]
}

// Open creates the database directory if needed, opens (or creates) the
// bbolt file at cfg.DBPath, and ensures all six buckets exist.
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create db directory: %w", err)
		}
	}

	db, err := bolt.Open(cfg.DBPath, 0o600, nil)
	if err != nil {
		return nil, poolerr.Wrap(poolerr.KindDatabase, err, "open %s", cfg.DBPath)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, poolerr.Wrap(poolerr.KindDatabase, err, "create buckets")
	}

	s := &Store{db: db, logger: logger}
	if cfg.CacheSize > 0 {
		// Cache holds decoded blocks; size it by entry count, not bytes,
		// since bbolt (unlike RocksDB) has no byte-budgeted block cache.
		entries := cfg.CacheSize / 4096
		if entries < 16 {
			entries = 16
		}
		cache, err := lru.New[crypto.Hash, *block.Block](entries)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("store: create cache: %w", err)
		}
		s.cache = cache
	}

	logger.Info("ledger store opened", zap.String("path", cfg.DBPath))
	return s, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying bbolt handle for callers that need to run
// schema migrations or other maintenance outside Store's own API.
func (s *Store) DB() *bolt.DB {
	return s.db
}

func heightKey(height uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], height)
	return b[:]
}

func timestampKey(timestamp, height uint64) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b[0:8], timestamp)
	binary.LittleEndian.PutUint64(b[8:16], height)
	return b
}

// StoreBlock atomically writes a block's bytes, its height index, its
// timestamp index entry, and a location record for each of its
// transactions. Readers observe either all of these or none, per
// spec.md §5.
func (s *Store) StoreBlock(b *block.Block) error {
	encoded, err := b.Encode()
	if err != nil {
		return poolerr.Wrap(poolerr.KindSerialization, err, "encode block at height %d", b.Header.Height)
	}
	blockHash := b.Hash()

	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketBlocks).Put(blockHash[:], encoded); err != nil {
			return err
		}
		if err := tx.Bucket(bucketBlockHeight).Put(heightKey(b.Header.Height), blockHash[:]); err != nil {
			return err
		}
		if err := tx.Bucket(bucketTimestampIndex).Put(timestampKey(b.Header.Timestamp, b.Header.Height), blockHash[:]); err != nil {
			return err
		}

		txBucket := tx.Bucket(bucketTransactions)
		for i, t := range b.Transactions {
			loc := TxLocation{BlockHash: blockHash, Index: uint32(i)}
			locBytes, err := loc.Encode()
			if err != nil {
				return err
			}
			txHash := t.Hash()
			if err := txBucket.Put(txHash[:], locBytes); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return poolerr.Wrap(poolerr.KindDatabase, err, "store block at height %d", b.Header.Height)
	}

	if s.cache != nil {
		s.cache.Add(blockHash, b)
	}
	return nil
}

// GetBlock retrieves a block by hash, or (nil, false) if absent.
func (s *Store) GetBlock(hash crypto.Hash) (*block.Block, bool, error) {
	if s.cache != nil {
		if b, ok := s.cache.Get(hash); ok {
			return b, true, nil
		}
	}

	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlocks).Get(hash[:])
		if v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, poolerr.Wrap(poolerr.KindDatabase, err, "get block %s", hash)
	}
	if raw == nil {
		return nil, false, nil
	}

	b, err := block.Decode(raw)
	if err != nil {
		return nil, false, poolerr.Wrap(poolerr.KindSerialization, err, "decode block %s", hash)
	}
	if s.cache != nil {
		s.cache.Add(hash, b)
	}
	return b, true, nil
}

// GetBlockHashByHeight returns the hash of the block stored at height.
func (s *Store) GetBlockHashByHeight(height uint64) (crypto.Hash, bool, error) {
	var hash crypto.Hash
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlockHeight).Get(heightKey(height))
		if v == nil {
			return nil
		}
		if len(v) != crypto.HashSize {
			return fmt.Errorf("invalid hash length %d in height index", len(v))
		}
		copy(hash[:], v)
		found = true
		return nil
	})
	if err != nil {
		return crypto.Hash{}, false, poolerr.Wrap(poolerr.KindDatabase, err, "get block hash at height %d", height)
	}
	return hash, found, nil
}

// GetBlockByHeight retrieves a block by height, or (nil, false) if absent.
func (s *Store) GetBlockByHeight(height uint64) (*block.Block, bool, error) {
	hash, found, err := s.GetBlockHashByHeight(height)
	if err != nil || !found {
		return nil, false, err
	}
	return s.GetBlock(hash)
}

// GetLatestHeight returns the highest stored block height, or 0 if the
// store is empty.
func (s *Store) GetLatestHeight() (uint64, error) {
	var height uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketBlockHeight).Cursor()
		k, _ := c.Last()
		if k == nil {
			return nil
		}
		if len(k) != 8 {
			return fmt.Errorf("invalid height key length %d", len(k))
		}
		height = binary.LittleEndian.Uint64(k)
		return nil
	})
	if err != nil {
		return 0, poolerr.Wrap(poolerr.KindDatabase, err, "get latest height")
	}
	return height, nil
}

// GetTransaction resolves a transaction hash to its block and returns the
// transaction itself. A location record pointing to a missing block is
// reported as a Database error: it signals on-disk corruption, not a
// normal miss.
func (s *Store) GetTransaction(hash crypto.Hash) (*txn.Transaction, bool, error) {
	var locBytes []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketTransactions).Get(hash[:])
		if v != nil {
			locBytes = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, poolerr.Wrap(poolerr.KindDatabase, err, "get transaction location %s", hash)
	}
	if locBytes == nil {
		return nil, false, nil
	}

	loc, err := DecodeTxLocation(locBytes)
	if err != nil {
		return nil, false, poolerr.Wrap(poolerr.KindSerialization, err, "decode tx location %s", hash)
	}

	b, found, err := s.GetBlock(loc.BlockHash)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, poolerr.New(poolerr.KindDatabase,
			"transaction %s: referenced block %s not found", hash, loc.BlockHash)
	}
	if int(loc.Index) >= len(b.Transactions) {
		return nil, false, poolerr.New(poolerr.KindDatabase,
			"transaction %s: index %d out of range in block %s", hash, loc.Index, loc.BlockHash)
	}
	return b.Transactions[loc.Index], true, nil
}

// StoreAccountState persists an address's account state.
func (s *Store) StoreAccountState(address crypto.Address, account state.AccountState) error {
	encoded, err := account.Encode()
	if err != nil {
		return poolerr.Wrap(poolerr.KindSerialization, err, "encode account state for %s", address)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAccountState).Put(address[:], encoded)
	})
	if err != nil {
		return poolerr.Wrap(poolerr.KindDatabase, err, "store account state for %s", address)
	}
	return nil
}

// GetAccountState retrieves an address's account state, or (zero, false)
// if absent.
func (s *Store) GetAccountState(address crypto.Address) (state.AccountState, bool, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketAccountState).Get(address[:])
		if v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return state.AccountState{}, false, poolerr.Wrap(poolerr.KindDatabase, err, "get account state for %s", address)
	}
	if raw == nil {
		return state.AccountState{}, false, nil
	}
	account, err := state.DecodeAccountState(raw)
	if err != nil {
		return state.AccountState{}, false, poolerr.Wrap(poolerr.KindSerialization, err, "decode account state for %s", address)
	}
	return account, true, nil
}

// VerifyIntegrity walks the chain height-descending, confirming each
// block's prev_hash links to the block one height below it and that the
// genesis block's prev_hash is the zero hash, per spec.md §4.4/T5.
func (s *Store) VerifyIntegrity() (bool, error) {
	latest, err := s.GetLatestHeight()
	if err != nil {
		return false, err
	}
	if latest == 0 {
		if _, found, err := s.GetBlockByHeight(0); err != nil {
			return false, err
		} else if !found {
			return true, nil // empty store
		}
	}

	for height := latest; ; height-- {
		b, found, err := s.GetBlockByHeight(height)
		if err != nil {
			return false, err
		}
		if !found {
			return false, poolerr.New(poolerr.KindDatabase, "missing block at height %d", height)
		}

		if height == 0 {
			if !b.Header.PrevHash.IsZero() {
				s.logger.Warn("integrity check failed: genesis prev_hash is not zero")
				return false, nil
			}
			break
		}

		prevHash, found, err := s.GetBlockHashByHeight(height - 1)
		if err != nil {
			return false, err
		}
		if !found || b.Header.PrevHash != prevHash {
			s.logger.Warn("integrity check failed: broken chain link", zap.Uint64("height", height))
			return false, nil
		}
	}
	return true, nil
}

// GetBlocksByTimeRange returns up to limit blocks whose timestamp falls
// in [start, end], ordered by the timestamp index (timestamp-primary,
// height-secondary).
func (s *Store) GetBlocksByTimeRange(start, end uint64, limit int) ([]*block.Block, error) {
	var hashes []crypto.Hash
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketTimestampIndex).Cursor()
		startKey := timestampKey(start, 0)
		for k, v := c.Seek(startKey); k != nil; k, v = c.Next() {
			if len(k) < 8 {
				continue
			}
			ts := binary.LittleEndian.Uint64(k[0:8])
			if ts > end {
				break
			}
			if len(v) != crypto.HashSize {
				return fmt.Errorf("invalid hash length %d in timestamp index", len(v))
			}
			var h crypto.Hash
			copy(h[:], v)
			hashes = append(hashes, h)
			if len(hashes) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, poolerr.Wrap(poolerr.KindDatabase, err, "get blocks by time range [%d,%d]", start, end)
	}

	blocks := make([]*block.Block, 0, len(hashes))
	for _, h := range hashes {
		b, found, err := s.GetBlock(h)
		if err != nil {
			return nil, err
		}
		if found {
			blocks = append(blocks, b)
		}
	}
	return blocks, nil
}

// timestampTolerance bounds how far past the requested timestamp
// FindBlockByTimestamp will accept a match, per spec.md §9's heuristic.
const timestampTolerance = 1000

// FindBlockByTimestamp returns the block whose timestamp matches exactly,
// or the nearest one within timestampTolerance milliseconds after it, or
// failing that the nearest one before it.
func (s *Store) FindBlockByTimestamp(timestamp uint64) (*block.Block, bool, error) {
	var (
		forwardHash crypto.Hash
		haveForward bool
		forwardTS   uint64
		backHash    crypto.Hash
		haveBack    bool
	)

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketTimestampIndex).Cursor()
		startKey := timestampKey(timestamp, 0)

		k, v := c.Seek(startKey)
		if k != nil {
			forwardTS = binary.LittleEndian.Uint64(k[0:8])
			copy(forwardHash[:], v)
			haveForward = true
			k, v = c.Prev()
		} else {
			k, v = c.Last()
		}
		if k != nil {
			copy(backHash[:], v)
			haveBack = true
		}
		return nil
	})
	if err != nil {
		return nil, false, poolerr.Wrap(poolerr.KindDatabase, err, "find block by timestamp %d", timestamp)
	}

	if haveForward && (forwardTS == timestamp || forwardTS < timestamp+timestampTolerance) {
		b, found, err := s.GetBlock(forwardHash)
		return b, found, err
	}
	if haveBack {
		b, found, err := s.GetBlock(backHash)
		return b, found, err
	}
	return nil, false, nil
}

// Backup copies the live database to destPath using bbolt's online,
// consistent hot-backup primitive.
func (s *Store) Backup(destPath string) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		f, err := os.Create(destPath)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = tx.WriteTo(f)
		return err
	})
	if err != nil {
		return poolerr.Wrap(poolerr.KindIO, err, "backup to %s", destPath)
	}
	return nil
}

// Restore replaces the database file at dbPath with the backup at
// backupPath. The caller must not hold an open Store for dbPath while
// calling this; Restore operates on the files directly, mirroring the
// original implementation's restore_from_backup being a free function
// rather than a Store method (original_source/src/storage/mod.rs).
func Restore(backupPath, dbPath string) error {
	src, err := os.Open(backupPath)
	if err != nil {
		return poolerr.Wrap(poolerr.KindIO, err, "open backup %s", backupPath)
	}
	defer src.Close()

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return poolerr.Wrap(poolerr.KindIO, err, "create db directory")
		}
	}

	dst, err := os.Create(dbPath)
	if err != nil {
		return poolerr.Wrap(poolerr.KindIO, err, "create %s", dbPath)
	}
	defer dst.Close()

	if _, err := dst.ReadFrom(src); err != nil {
		return poolerr.Wrap(poolerr.KindIO, err, "restore %s from %s", dbPath, backupPath)
	}
	return nil
}
