package mempool

import "time"

// OperationType identifies a mempool operation for timing statistics.
type OperationType int

const (
	OpAdd OperationType = iota
	OpValidate
	OpSelect
	OpRemove
	OpRevalidate
	OpOptimize
	OpMaintenance
)

var allOperationTypes = [...]OperationType{
	OpAdd, OpValidate, OpSelect, OpRemove, OpRevalidate, OpOptimize, OpMaintenance,
}

func (o OperationType) String() string {
	switch o {
	case OpAdd:
		return "Add"
	case OpValidate:
		return "Validate"
	case OpSelect:
		return "Select"
	case OpRemove:
		return "Remove"
	case OpRevalidate:
		return "Revalidate"
	case OpOptimize:
		return "Optimize"
	case OpMaintenance:
		return "Maintenance"
	default:
		return "Unknown"
	}
}

// FeeRange buckets a transaction by its fee-per-byte.
type FeeRange int

const (
	FeeVeryLow FeeRange = iota
	FeeLow
	FeeMedium
	FeeHigh
	FeeVeryHigh
)

func (f FeeRange) String() string {
	switch f {
	case FeeVeryLow:
		return "VeryLow"
	case FeeLow:
		return "Low"
	case FeeMedium:
		return "Medium"
	case FeeHigh:
		return "High"
	default:
		return "VeryHigh"
	}
}

func feeRangeOf(feePerByte float64) FeeRange {
	switch {
	case feePerByte < 1.0:
		return FeeVeryLow
	case feePerByte < 5.0:
		return FeeLow
	case feePerByte < 10.0:
		return FeeMedium
	case feePerByte < 50.0:
		return FeeHigh
	default:
		return FeeVeryHigh
	}
}

// SizeRange buckets a transaction by its estimated byte size.
type SizeRange int

const (
	SizeTiny SizeRange = iota
	SizeSmall
	SizeMedium
	SizeLarge
	SizeVeryLarge
)

func (s SizeRange) String() string {
	switch s {
	case SizeTiny:
		return "Tiny"
	case SizeSmall:
		return "Small"
	case SizeMedium:
		return "Medium"
	case SizeLarge:
		return "Large"
	default:
		return "VeryLarge"
	}
}

func sizeRangeOf(size int) SizeRange {
	switch {
	case size < 100:
		return SizeTiny
	case size < 500:
		return SizeSmall
	case size < 1000:
		return SizeMedium
	case size < 5000:
		return SizeLarge
	default:
		return SizeVeryLarge
	}
}

// HistorySample is one point in a bounded FIFO history buffer.
type HistorySample struct {
	TimestampSecs uint64
	Value         int
}

type operationTiming struct {
	count    uint64
	total    time.Duration
	max      time.Duration
	startedAt time.Time
	running  bool
}

// Metrics is a snapshot-friendly view of the collected mempool metrics,
// returned by Collector.Report.
type Metrics struct {
	TransactionsAdded    uint64
	TransactionsRejected uint64
	TransactionsRemoved  uint64
	TransactionsExpired  uint64

	PeakMemoryUsage      int
	PeakTransactionCount int
	AvgFeePerByte        float64

	MemoryHistory []HistorySample
	CountHistory  []HistorySample

	FeeDistribution  map[FeeRange]uint64
	SizeDistribution map[SizeRange]uint64

	OperationCounts map[OperationType]uint64
	OperationTotal  map[OperationType]time.Duration
	OperationMax    map[OperationType]time.Duration
	OperationAvg    map[OperationType]time.Duration
}

// Collector accumulates the counters, distributions, timings, and bounded
// history buffers spec.md §4.7 describes. It is not safe for concurrent
// use without external synchronization, matching the single-writer
// assumption the rest of the mempool makes (spec.md §5).
type Collector struct {
	enabled bool
	start   time.Time

	added    uint64
	rejected uint64
	removed  uint64
	expired  uint64

	peakMemory int
	peakCount  int

	feeWeightedSum float64 // sum of fee_per_byte observed, for the running average

	memoryHistory []HistorySample
	countHistory  []HistorySample
	maxHistory    int

	feeDist  map[FeeRange]uint64
	sizeDist map[SizeRange]uint64

	timings map[OperationType]*operationTiming
}

// DefaultMaxHistoryPoints is the default bounded-history length.
const DefaultMaxHistoryPoints = 100

// NewCollector creates a metrics collector retaining at most
// maxHistoryPoints samples per history buffer.
func NewCollector(maxHistoryPoints int) *Collector {
	if maxHistoryPoints <= 0 {
		maxHistoryPoints = DefaultMaxHistoryPoints
	}
	c := &Collector{
		enabled:    true,
		start:      time.Now(),
		maxHistory: maxHistoryPoints,
		feeDist:    make(map[FeeRange]uint64),
		sizeDist:   make(map[SizeRange]uint64),
		timings:    make(map[OperationType]*operationTiming),
	}
	for _, op := range allOperationTypes {
		c.timings[op] = &operationTiming{}
	}
	return c
}

// SetEnabled toggles metrics collection on or off.
func (c *Collector) SetEnabled(enabled bool) { c.enabled = enabled }

// Enabled reports whether metrics collection is currently on.
func (c *Collector) Enabled() bool { return c.enabled }

// StartOperation begins timing an operation of the given type.
func (c *Collector) StartOperation(op OperationType) {
	if !c.enabled {
		return
	}
	t := c.timings[op]
	t.startedAt = time.Now()
	t.running = true
}

// StopOperation ends timing an operation started with StartOperation and
// records its duration.
func (c *Collector) StopOperation(op OperationType) {
	if !c.enabled {
		return
	}
	t := c.timings[op]
	if !t.running {
		return
	}
	d := time.Since(t.startedAt)
	t.running = false
	t.count++
	t.total += d
	if d > t.max {
		t.max = d
	}
}

// RecordAdded records a successful admission.
func (c *Collector) RecordAdded() {
	if !c.enabled {
		return
	}
	c.added++
}

// RecordRejected records a failed admission.
func (c *Collector) RecordRejected() {
	if !c.enabled {
		return
	}
	c.rejected++
}

// RecordRemoved records an explicit removal (Pool.RemoveTransaction);
// replacements, evictions and expiry do not call it.
func (c *Collector) RecordRemoved() {
	if !c.enabled {
		return
	}
	c.removed++
}

// RecordExpired records count transactions removed by expiry.
func (c *Collector) RecordExpired(count uint64) {
	if !c.enabled {
		return
	}
	c.expired += count
}

// UpdateMemoryUsage records a memory-usage sample, updating the peak and
// appending to the bounded FIFO history.
func (c *Collector) UpdateMemoryUsage(currentBytes int) {
	if !c.enabled {
		return
	}
	if currentBytes > c.peakMemory {
		c.peakMemory = currentBytes
	}
	c.memoryHistory = appendBounded(c.memoryHistory, HistorySample{
		TimestampSecs: uint64(time.Since(c.start).Seconds()),
		Value:         currentBytes,
	}, c.maxHistory)
}

// UpdateTransactionCount records a pool-size sample, updating the peak and
// appending to the bounded FIFO history.
func (c *Collector) UpdateTransactionCount(currentCount int) {
	if !c.enabled {
		return
	}
	if currentCount > c.peakCount {
		c.peakCount = currentCount
	}
	c.countHistory = appendBounded(c.countHistory, HistorySample{
		TimestampSecs: uint64(time.Since(c.start).Seconds()),
		Value:         currentCount,
	}, c.maxHistory)
}

func appendBounded(buf []HistorySample, sample HistorySample, max int) []HistorySample {
	buf = append(buf, sample)
	if len(buf) > max {
		buf = buf[len(buf)-max:]
	}
	return buf
}

// RecordTransactionFee records a transaction's fee-per-byte and size for
// the distribution buckets and the running fee-per-byte average.
func (c *Collector) RecordTransactionFee(feePerByte float64, size int) {
	if !c.enabled {
		return
	}
	c.feeWeightedSum += feePerByte
	c.feeDist[feeRangeOf(feePerByte)]++
	c.sizeDist[sizeRangeOf(size)]++
}

// Reset clears all accumulated metrics and restarts the history clock.
func (c *Collector) Reset() {
	c.start = time.Now()
	c.added, c.rejected, c.removed, c.expired = 0, 0, 0, 0
	c.peakMemory, c.peakCount = 0, 0
	c.feeWeightedSum = 0
	c.memoryHistory, c.countHistory = nil, nil
	c.feeDist = make(map[FeeRange]uint64)
	c.sizeDist = make(map[SizeRange]uint64)
	c.timings = make(map[OperationType]*operationTiming)
	for _, op := range allOperationTypes {
		c.timings[op] = &operationTiming{}
	}
}

// Report returns a snapshot of the currently collected metrics.
func (c *Collector) Report() Metrics {
	avgFee := 0.0
	if c.added > 0 {
		avgFee = c.feeWeightedSum / float64(c.added)
	}

	m := Metrics{
		TransactionsAdded:    c.added,
		TransactionsRejected: c.rejected,
		TransactionsRemoved:  c.removed,
		TransactionsExpired:  c.expired,
		PeakMemoryUsage:      c.peakMemory,
		PeakTransactionCount: c.peakCount,
		AvgFeePerByte:        avgFee,
		MemoryHistory:        append([]HistorySample(nil), c.memoryHistory...),
		CountHistory:         append([]HistorySample(nil), c.countHistory...),
		FeeDistribution:      make(map[FeeRange]uint64, len(c.feeDist)),
		SizeDistribution:     make(map[SizeRange]uint64, len(c.sizeDist)),
		OperationCounts:      make(map[OperationType]uint64, len(c.timings)),
		OperationTotal:       make(map[OperationType]time.Duration, len(c.timings)),
		OperationMax:         make(map[OperationType]time.Duration, len(c.timings)),
		OperationAvg:         make(map[OperationType]time.Duration, len(c.timings)),
	}
	for k, v := range c.feeDist {
		m.FeeDistribution[k] = v
	}
	for k, v := range c.sizeDist {
		m.SizeDistribution[k] = v
	}
	for op, t := range c.timings {
		m.OperationCounts[op] = t.count
		m.OperationTotal[op] = t.total
		m.OperationMax[op] = t.max
		if t.count > 0 {
			m.OperationAvg[op] = t.total / time.Duration(t.count)
		}
	}
	return m
}
