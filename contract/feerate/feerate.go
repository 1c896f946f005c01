// Package feerate derives fee-rate presets from the projected mempool
// blocks and keeps the latest snapshot for builders to read.
package feerate

import (
	"math"
	"sync"
	"time"
)

// FeeBlock is one projected block as reported by the mempool API.
type FeeBlock struct {
	BlockSize  int64
	BlockVSize float64
	NTx        int64
	TotalFees  int64
	MedianFee  float64
	FeeRange   []float64 // ascending sat/vB
}

// Rates are the presets offered when building an order, in sat/vB.
type Rates struct {
	Fastest  int64
	HalfHour int64
	Hour     int64
}

// ToRates picks the presets from the fee range of the next block. Rates
// are forced strictly increasing from Hour to Fastest.
func ToRates(block *FeeBlock) Rates {
	if block == nil || len(block.FeeRange) == 0 {
		return Rates{Fastest: 3, HalfHour: 2, Hour: 1}
	}
	r := block.FeeRange
	last := len(r) - 1
	fastest := int64(math.Round(r[max(last-1, 0)]))
	halfHour := int64(math.Round(r[max(last-3, 0)]))
	hour := max(int64(math.Round(r[0])), 1)
	if halfHour <= hour {
		halfHour = hour + 1
	}
	if fastest <= halfHour {
		fastest = halfHour + 1
	}
	return Rates{Fastest: fastest, HalfHour: halfHour, Hour: hour}
}

// Ceiling is the highest rate worth offering for the block.
func Ceiling(block *FeeBlock, selected float64) int64 {
	top := 200.0
	if block != nil && len(block.FeeRange) > 0 {
		top = block.FeeRange[len(block.FeeRange)-1]
		if selected > 0 {
			top = math.Max(math.Max(top, selected), 100)
		}
	}
	return int64(math.Ceil(top))
}

type Snapshot struct {
	Block     FeeBlock
	Rates     Rates
	FetchedAt time.Time
}

// Cache holds the latest snapshot. The zero value is empty and usable.
type Cache struct {
	mu       sync.RWMutex
	snapshot *Snapshot
}

func (c *Cache) Store(block FeeBlock, at time.Time) Snapshot {
	s := Snapshot{Block: block, Rates: ToRates(&block), FetchedAt: at}
	c.mu.Lock()
	c.snapshot = &s
	c.mu.Unlock()
	return s
}

// Load returns the latest snapshot and whether one exists.
func (c *Cache) Load() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return Snapshot{}, false
	}
	return *c.snapshot, true
}

// HalfHour is the default preset, falling back to fallback when nothing
// has been fetched yet.
func (c *Cache) HalfHour(fallback float64) float64 {
	if s, ok := c.Load(); ok {
		return float64(s.Rates.HalfHour)
	}
	return fallback
}
