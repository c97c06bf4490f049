package engine

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"strconv"
	"sync/atomic"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// CachedAggregator memoises Aggregate by the content of its inputs. Results
// are identical with the cache disabled; callers get their own copy of the
// cached slice.
type CachedAggregator struct {
	cache  *gocache.Cache
	cfg    *config
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedAggregator builds an aggregator with the given options.
func NewCachedAggregator(opts ...Option) *CachedAggregator {
	cfg := applyOptions(opts)
	return &CachedAggregator{
		cache: gocache.New(cfg.Expiration, cfg.CleanupInterval),
		cfg:   cfg,
	}
}

// Aggregate is engine.Aggregate behind the cache.
func (a *CachedAggregator) Aggregate(records []RawRecord, countries []string, crops []string, years []int) []AggregatedRecord {
	if !a.cfg.CacheEnabled {
		return Aggregate(records, countries, crops, years)
	}

	key := Fingerprint(records, countries, crops, years)
	if v, ok := a.cache.Get(key); ok {
		a.hits.Add(1)
		a.cfg.Logger.Debug("aggregate cache hit", zap.String("key", key))
		return cloneAggregated(v.([]AggregatedRecord))
	}

	a.misses.Add(1)
	out := Aggregate(records, countries, crops, years)
	a.cache.SetDefault(key, cloneAggregated(out))
	a.cfg.Logger.Debug("aggregate cache miss",
		zap.String("key", key),
		zap.Int("records", len(records)),
		zap.Int("buckets", len(out)))
	return out
}

// Stats returns cache hit and miss counts.
func (a *CachedAggregator) Stats() (hits, misses int64) {
	return a.hits.Load(), a.misses.Load()
}

// Fingerprint hashes the aggregation inputs. Equal content gives equal keys.
func Fingerprint(records []RawRecord, countries []string, crops []string, years []int) string {
	h := fnv.New64a()
	var buf [8]byte

	writeString := func(s string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		h.Write(buf[:])
		h.Write([]byte(s))
	}
	writeUint := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}

	writeUint(uint64(len(records)))
	for _, r := range records {
		writeString(r.Country)
		writeString(r.Crop)
		writeUint(uint64(int64(r.Year)))
		writeUint(math.Float64bits(r.Yield))
		writeUint(math.Float64bits(r.Rainfall))
		writeUint(math.Float64bits(r.Pesticides))
		writeUint(math.Float64bits(r.Temperature))
	}
	writeUint(uint64(len(countries)))
	for _, c := range countries {
		writeString(c)
	}
	writeUint(uint64(len(crops)))
	for _, c := range crops {
		writeString(c)
	}
	writeUint(uint64(len(years)))
	for _, y := range years {
		writeUint(uint64(int64(y)))
	}

	return "agg:" + strconv.FormatUint(h.Sum64(), 16)
}

func cloneAggregated(in []AggregatedRecord) []AggregatedRecord {
	out := make([]AggregatedRecord, len(in))
	copy(out, in)
	return out
}
