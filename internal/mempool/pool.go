// Package mempool implements the memory- and size-bounded transaction pool:
// admission with replacement-by-fee, dependency-respecting fee-greedy
// selection, expiry, and memory-pressure eviction, as described in
// spec.md §4.6. It mirrors the teacher's sharechain package in structure
// (a primary index plus auxiliary indices guarded by a single caller) but
// implements mempool semantics rather than PPLNS share accounting.
package mempool

import (
	"sort"
	"time"

	"blocana/internal/crypto"
	"blocana/internal/mempool/poolerr"
	"blocana/internal/state"
	"blocana/internal/txn"
)

// PooledTransaction is a transaction together with the pool bookkeeping
// spec.md §4.6 requires: arrival time and arrival sequence number (for
// tie-breaking), its fee-per-byte (cached to avoid recomputation),
// estimated size (for memory accounting), and a validity flag maintained
// by RevalidateTransactions.
type PooledTransaction struct {
	Tx         *txn.Transaction
	AddedTime  int64
	FeePerByte uint64
	Size       int
	IsValid    bool

	arrival uint64 // insertion order; orders entries that share an AddedTime second
}

// nowUnix is overridable in tests to control arrival-time ordering.
var nowUnix = func() int64 { return time.Now().Unix() }

// Pool is the in-memory, single-writer transaction pool. It is not safe
// for concurrent use; see spec.md §5 — callers sharing a Pool across
// goroutines must provide external mutual exclusion.
type Pool struct {
	cfg Config

	byHash  map[crypto.Hash]*PooledTransaction
	bySender map[crypto.Address]map[uint64]crypto.Hash // sender -> nonce -> hash
	feeIndex []crypto.Hash                              // may diverge from byHash until rebuilt

	memoryUsage int
	arrivals    uint64 // next arrival sequence number

	Metrics *Collector
}

// New creates an empty Pool with the given configuration.
func New(cfg Config) *Pool {
	return &Pool{
		cfg:      cfg,
		byHash:   make(map[crypto.Hash]*PooledTransaction),
		bySender: make(map[crypto.Address]map[uint64]crypto.Hash),
		Metrics:  NewCollector(DefaultMaxHistoryPoints),
	}
}

// Len returns the number of pooled transactions.
func (p *Pool) Len() int { return len(p.byHash) }

// IsEmpty reports whether the pool holds no transactions.
func (p *Pool) IsEmpty() bool { return len(p.byHash) == 0 }

// MemoryUsage returns the current estimated memory usage in bytes.
func (p *Pool) MemoryUsage() int { return p.memoryUsage }

// GetTransaction returns the pooled transaction for hash, if present.
func (p *Pool) GetTransaction(hash crypto.Hash) (*PooledTransaction, bool) {
	pt, ok := p.byHash[hash]
	return pt, ok
}

// FindTransactionBySenderAndNonce returns the pooled transaction, if any,
// from sender at the given nonce.
func (p *Pool) FindTransactionBySenderAndNonce(sender crypto.Address, nonce uint64) (*PooledTransaction, bool) {
	byNonce, ok := p.bySender[sender]
	if !ok {
		return nil, false
	}
	hash, ok := byNonce[nonce]
	if !ok {
		return nil, false
	}
	return p.GetTransaction(hash)
}

// Transactions returns every pooled transaction in unspecified order.
func (p *Pool) Transactions() []*PooledTransaction {
	out := make([]*PooledTransaction, 0, len(p.byHash))
	for _, pt := range p.byHash {
		out = append(out, pt)
	}
	return out
}

// AddTransaction admits tx without allowing fee-bump replacement of an
// existing same-sender-same-nonce entry.
func (p *Pool) AddTransaction(tx *txn.Transaction, st *state.BlockchainState) (crypto.Hash, error) {
	return p.AddTransactionWithReplacement(tx, st, false)
}

// AddTransactionWithReplacement implements the 11-step admission algorithm
// of spec.md §4.6.
func (p *Pool) AddTransactionWithReplacement(tx *txn.Transaction, st *state.BlockchainState, allowReplacement bool) (crypto.Hash, error) {
	p.Metrics.StartOperation(OpAdd)
	defer p.Metrics.StopOperation(OpAdd)

	var zero crypto.Hash

	// 1. Verify signature and structural rules.
	if err := tx.Verify(); err != nil {
		p.Metrics.RecordRejected()
		return zero, poolerr.Wrap(poolerr.KindValidation, err, "transaction failed verification")
	}

	txHash := tx.Hash()

	// 2. Reject exact duplicates.
	if _, exists := p.byHash[txHash]; exists {
		p.Metrics.RecordRejected()
		return zero, poolerr.AlreadyExists(txHash)
	}

	// 3. Same-sender-nonce collision.
	existing, hasExisting := p.FindTransactionBySenderAndNonce(tx.Sender, tx.Nonce)
	if hasExisting {
		if !allowReplacement {
			p.Metrics.RecordRejected()
			return zero, poolerr.AlreadyExists(existing.Tx.Hash())
		}
		minRequired := saturatingBumpedFee(existing.Tx.Fee, p.cfg.ReplacementFeeBump)
		if tx.Fee < minRequired {
			p.Metrics.RecordRejected()
			return zero, poolerr.ReplacementFeeTooLow(tx.Fee, minRequired)
		}
		p.removeInternal(existing.Tx.Hash())
	}

	// 4-5. Nonce check against external state.
	account := st.Get(tx.Sender)
	if tx.Nonce != account.Nonce {
		p.Metrics.RecordRejected()
		return zero, poolerr.InvalidNonce(tx.Sender, account.Nonce, tx.Nonce)
	}

	// 6. Balance check (saturating).
	required := saturatingAddU64(tx.Amount, tx.Fee)
	if account.Balance < required {
		p.Metrics.RecordRejected()
		return zero, poolerr.InsufficientBalance(tx.Sender, account.Balance, required)
	}

	// 7. Fee floor.
	size := tx.EstimateSize()
	feePerByte := tx.Fee / uint64(size)
	if feePerByte < p.cfg.MinFeePerByte {
		p.Metrics.RecordRejected()
		return zero, poolerr.FeeTooLow(feePerByte, p.cfg.MinFeePerByte)
	}

	// 8. Pool-full eviction of the minimum fee_per_byte entry.
	if len(p.byHash) >= p.cfg.MaxSize {
		minHash, minFeePerByte, ok := p.minFeePerByteEntry()
		if !ok || feePerByte <= minFeePerByte {
			p.Metrics.RecordRejected()
			return zero, poolerr.PoolFull(len(p.byHash), p.cfg.MaxSize)
		}
		p.removeInternal(minHash)
	}

	// 9. Memory projection, optimize on pressure, hard cap rejection.
	projected := p.memoryUsage + size
	if projected > int(optimizeHighWatermark*float64(p.cfg.MaxMemory)) {
		p.optimizeMemory()
		projected = p.memoryUsage + size
	}
	if projected > p.cfg.MaxMemory {
		p.Metrics.RecordRejected()
		return zero, poolerr.MemoryLimitReached(projected, p.cfg.MaxMemory)
	}

	// 10-11. Insert and update bookkeeping.
	p.insert(txHash, tx, size, feePerByte)
	p.Metrics.RecordAdded()
	p.Metrics.RecordTransactionFee(float64(feePerByte), size)
	p.Metrics.UpdateMemoryUsage(p.memoryUsage)
	p.Metrics.UpdateTransactionCount(len(p.byHash))

	return txHash, nil
}

func (p *Pool) insert(hash crypto.Hash, tx *txn.Transaction, size int, feePerByte uint64) {
	pt := &PooledTransaction{
		Tx:         tx,
		AddedTime:  nowUnix(),
		FeePerByte: feePerByte,
		Size:       size,
		IsValid:    true,
		arrival:    p.arrivals,
	}
	p.arrivals++
	p.byHash[hash] = pt
	p.feeIndex = append(p.feeIndex, hash)

	byNonce, ok := p.bySender[tx.Sender]
	if !ok {
		byNonce = make(map[uint64]crypto.Hash)
		p.bySender[tx.Sender] = byNonce
	}
	byNonce[tx.Nonce] = hash

	p.memoryUsage += size
}

// removeInternal removes a pooled transaction from every index without
// recording metrics; callers that want metrics call RemoveTransaction.
func (p *Pool) removeInternal(hash crypto.Hash) bool {
	pt, ok := p.byHash[hash]
	if !ok {
		return false
	}
	delete(p.byHash, hash)
	p.memoryUsage -= pt.Size

	if byNonce, ok := p.bySender[pt.Tx.Sender]; ok {
		delete(byNonce, pt.Tx.Nonce)
		if len(byNonce) == 0 {
			delete(p.bySender, pt.Tx.Sender)
		}
	}
	// feeIndex is left to diverge; optimizeMemory/perform_maintenance
	// rebuild it as spec.md §4.6 describes.
	return true
}

// RemoveTransaction removes hash from the pool, recording the removal
// metric. Reports whether a transaction was actually removed.
func (p *Pool) RemoveTransaction(hash crypto.Hash) bool {
	removed := p.removeInternal(hash)
	if removed {
		p.Metrics.RecordRemoved()
		p.Metrics.UpdateMemoryUsage(p.memoryUsage)
		p.Metrics.UpdateTransactionCount(len(p.byHash))
	}
	return removed
}

func (p *Pool) minFeePerByteEntry() (crypto.Hash, uint64, bool) {
	var (
		minHash crypto.Hash
		minFee  uint64
		found   bool
	)
	for hash, pt := range p.byHash {
		if !found || pt.FeePerByte < minFee {
			minHash, minFee, found = hash, pt.FeePerByte, true
		}
	}
	return minHash, minFee, found
}

func saturatingAddU64(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return ^uint64(0)
	}
	return sum
}

// saturatingBumpedFee computes existing + existing*bumpPercent/100 with
// saturating arithmetic, per spec.md §4.6's replacement branch.
func saturatingBumpedFee(existingFee, bumpPercent uint64) uint64 {
	bump := existingFee * bumpPercent
	if bumpPercent != 0 && bump/bumpPercent != existingFee {
		bump = ^uint64(0) // multiplication overflowed
	} else {
		bump /= 100
	}
	return saturatingAddU64(existingFee, bump)
}

// selectionCandidate is a scratch record built during SelectTransactions.
type selectionCandidate struct {
	hash       crypto.Hash
	pt         *PooledTransaction
	feePerByte uint64
}

// senderProjection tracks a sender's simulated balance/nonce as
// SelectTransactions greedily commits candidates.
type senderProjection struct {
	balance uint64
	nonce   uint64
}

// SelectTransactions implements the dependency-respecting, fee-greedy
// selection algorithm of spec.md §4.6, guaranteeing properties P1-P4.
func (p *Pool) SelectTransactions(maxCount int, st *state.BlockchainState) []*txn.Transaction {
	p.Metrics.StartOperation(OpSelect)
	defer p.Metrics.StopOperation(OpSelect)

	projections := make(map[crypto.Address]*senderProjection)
	projectionFor := func(addr crypto.Address) *senderProjection {
		if sp, ok := projections[addr]; ok {
			return sp
		}
		account := st.Get(addr)
		sp := &senderProjection{balance: account.Balance, nonce: account.Nonce}
		projections[addr] = sp
		return sp
	}

	selected := make(map[crypto.Hash]bool)
	out := make([]*txn.Transaction, 0, maxCount)

	for len(out) < maxCount {
		candidates := make([]selectionCandidate, 0)
		for hash, pt := range p.byHash {
			if selected[hash] || !pt.IsValid {
				continue
			}
			sp := projectionFor(pt.Tx.Sender)
			if pt.Tx.Nonce != sp.nonce {
				continue
			}
			required := saturatingAddU64(pt.Tx.Amount, pt.Tx.Fee)
			if sp.balance < required {
				continue
			}
			candidates = append(candidates, selectionCandidate{hash: hash, pt: pt, feePerByte: pt.FeePerByte})
		}

		if len(candidates) == 0 {
			break
		}

		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].feePerByte != candidates[j].feePerByte {
				return candidates[i].feePerByte > candidates[j].feePerByte
			}
			if candidates[i].pt.AddedTime != candidates[j].pt.AddedTime {
				return candidates[i].pt.AddedTime < candidates[j].pt.AddedTime
			}
			return candidates[i].pt.arrival < candidates[j].pt.arrival
		})

		top := candidates[0]
		sp := projectionFor(top.pt.Tx.Sender)
		sp.balance -= saturatingAddU64(top.pt.Tx.Amount, top.pt.Tx.Fee)
		sp.nonce++
		selected[top.hash] = true
		out = append(out, top.pt.Tx)
	}

	return out
}

// optimizeMemory implements spec.md §4.6's eviction strategy: rebuild the
// fee index if it diverges, sort ascending by fee_per_byte (ties broken
// newer-first), and remove until the low watermark is reached, falling
// back to removing at least one entry if nothing else qualified.
func (p *Pool) optimizeMemory() {
	p.Metrics.StartOperation(OpOptimize)
	defer p.Metrics.StopOperation(OpOptimize)

	if len(p.feeIndex) != len(p.byHash) {
		p.rebuildFeeIndex()
	}

	target := int(optimizeLowWatermark * float64(p.cfg.MaxMemory))
	if p.memoryUsage <= target || len(p.byHash) == 0 {
		return
	}

	ordered := make([]crypto.Hash, len(p.feeIndex))
	copy(ordered, p.feeIndex)
	sort.Slice(ordered, func(i, j int) bool {
		pi, pj := p.byHash[ordered[i]], p.byHash[ordered[j]]
		if pi.FeePerByte != pj.FeePerByte {
			return pi.FeePerByte < pj.FeePerByte
		}
		return pi.AddedTime > pj.AddedTime // newer first
	})

	removedAny := false
	for _, hash := range ordered {
		if p.memoryUsage <= target {
			break
		}
		if p.removeInternal(hash) {
			removedAny = true
		}
	}
	if !removedAny && len(p.byHash) > 0 {
		p.removeInternal(ordered[0])
	}
	p.rebuildFeeIndex()
}

func (p *Pool) rebuildFeeIndex() {
	p.feeIndex = make([]crypto.Hash, 0, len(p.byHash))
	for hash := range p.byHash {
		p.feeIndex = append(p.feeIndex, hash)
	}
}

// RemoveExpired deletes transactions whose AddedTime precedes
// now - expiry_time, recording the expiry metric.
func (p *Pool) RemoveExpired() int {
	p.Metrics.StartOperation(OpRemove)
	defer p.Metrics.StopOperation(OpRemove)

	cutoff := nowUnix() - p.cfg.ExpiryTime
	var toRemove []crypto.Hash
	for hash, pt := range p.byHash {
		if pt.AddedTime < cutoff {
			toRemove = append(toRemove, hash)
		}
	}
	for _, hash := range toRemove {
		p.removeInternal(hash)
	}
	if len(toRemove) > 0 {
		p.Metrics.RecordExpired(uint64(len(toRemove)))
		p.Metrics.UpdateMemoryUsage(p.memoryUsage)
		p.Metrics.UpdateTransactionCount(len(p.byHash))
	}
	return len(toRemove)
}

// RevalidateTransactions refreshes IsValid for every pooled transaction
// against the given state, per spec.md §4.6. Invalid entries stay in the
// pool until maintenance removes them; selection already skips them.
func (p *Pool) RevalidateTransactions(st *state.BlockchainState) {
	p.Metrics.StartOperation(OpRevalidate)
	defer p.Metrics.StopOperation(OpRevalidate)

	for _, pt := range p.byHash {
		account := st.Get(pt.Tx.Sender)
		required := saturatingAddU64(pt.Tx.Amount, pt.Tx.Fee)
		pt.IsValid = account.Balance >= required && pt.Tx.Nonce == account.Nonce
	}
}

// PerformMaintenance runs expiry, memory optimization, and fee index
// compaction (when it exceeds 2x the primary index size), per spec.md
// §4.6.
func (p *Pool) PerformMaintenance() {
	p.Metrics.StartOperation(OpMaintenance)
	defer p.Metrics.StopOperation(OpMaintenance)

	p.RemoveExpired()
	p.optimizeMemory()
	if len(p.feeIndex) > 2*len(p.byHash) {
		p.rebuildFeeIndex()
	}
}

// BatchResult reports the outcome of one transaction within
// AddTransactionsBatch.
type BatchResult struct {
	Hash crypto.Hash
	Err  error
}

// AddTransactionsBatch groups txs by sender, sorts each group by nonce
// ascending, and attempts insertion against a cloned projected state,
// per spec.md §4.6. The external state passed in is never mutated.
func (p *Pool) AddTransactionsBatch(txs []*txn.Transaction, st *state.BlockchainState) []BatchResult {
	bySender := make(map[crypto.Address][]*txn.Transaction)
	for _, tx := range txs {
		bySender[tx.Sender] = append(bySender[tx.Sender], tx)
	}

	projected := state.New()
	for addr, snapshot := range st.Accounts() {
		projected.Set(addr, snapshot)
	}

	results := make([]BatchResult, 0, len(txs))
	for _, group := range bySender {
		sort.Slice(group, func(i, j int) bool { return group[i].Nonce < group[j].Nonce })
		for _, tx := range group {
			hash, err := p.AddTransactionWithReplacement(tx, projected, false)
			results = append(results, BatchResult{Hash: hash, Err: err})
			if err == nil {
				// Advance the projection so a subsequent nonce from the
				// same sender validates against post-admission balance,
				// without touching the caller's real state.
				_ = projected.ApplyTransaction(tx)
			}
		}
	}
	return results
}
