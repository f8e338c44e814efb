package common

import (
	"errors"
	"math"

	lru "github.com/hashicorp/golang-lru"

	"github.com/poenetwork/node/internal/log"
)

// CacheKey is implemented by types usable in the sharded LRU cache below;
// Hash implements it via getShardIndex.
type CacheKey interface {
	getShardIndex(shardMask int) int
}

// Cache is the common interface across the plain, sharded, and ARC cache
// flavors below, adapted from the teacher's common/cache.go.
type Cache interface {
	Add(key CacheKey, value interface{}) (evicted bool)
	Get(key CacheKey) (value interface{}, ok bool)
	Contains(key CacheKey) bool
	Purge()
}

var logger = log.NewModuleLogger(log.ModuleCommon)

// CacheScale lets operators shrink configured cache sizes uniformly
// (size = preset size * CacheScale / 100), matching the teacher's knob.
var CacheScale = 100

type lruCache struct {
	lru *lru.Cache
}

func (c *lruCache) Add(key CacheKey, value interface{}) (evicted bool) {
	return c.lru.Add(key, value)
}

func (c *lruCache) Get(key CacheKey) (value interface{}, ok bool) {
	return c.lru.Get(key)
}

func (c *lruCache) Contains(key CacheKey) bool {
	return c.lru.Contains(key)
}

func (c *lruCache) Purge() {
	c.lru.Purge()
}

type arcCache struct {
	arc *lru.ARCCache
}

func (c *arcCache) Add(key CacheKey, value interface{}) (evicted bool) {
	c.arc.Add(key, value)
	return true
}

func (c *arcCache) Get(key CacheKey) (value interface{}, ok bool) {
	return c.arc.Get(key)
}

func (c *arcCache) Contains(key CacheKey) bool {
	return c.arc.Contains(key)
}

func (c *arcCache) Purge() {
	c.arc.Purge()
}

type lruShardCache struct {
	shards         []*lru.Cache
	shardIndexMask int
}

func (c *lruShardCache) Add(key CacheKey, val interface{}) (evicted bool) {
	return c.shards[key.getShardIndex(c.shardIndexMask)].Add(key, val)
}

func (c *lruShardCache) Get(key CacheKey) (value interface{}, ok bool) {
	return c.shards[key.getShardIndex(c.shardIndexMask)].Get(key)
}

func (c *lruShardCache) Contains(key CacheKey) bool {
	return c.shards[key.getShardIndex(c.shardIndexMask)].Contains(key)
}

func (c *lruShardCache) Purge() {
	for _, shard := range c.shards {
		s := shard
		go s.Purge()
	}
}

// CacheConfiger builds a concrete Cache from a configuration value.
type CacheConfiger interface {
	newCache() (Cache, error)
}

// NewCache constructs a Cache from a CacheConfiger. Nothing in this module
// calls it yet; the candidate arbiter and the pending-block buffer keep
// their own state without a cache.
func NewCache(config CacheConfiger) (Cache, error) {
	if config == nil {
		return nil, errors.New("cache config is nil")
	}
	return config.newCache()
}

// LRUConfig configures a plain LRU cache.
type LRUConfig struct {
	CacheSize int
}

func (c LRUConfig) newCache() (Cache, error) {
	size := c.CacheSize * CacheScale / 100
	l, err := lru.New(size)
	return &lruCache{l}, err
}

// LRUShardConfig configures a sharded LRU cache, useful once the UTXO
// pointer cache grows large enough that a single lock becomes contended.
type LRUShardConfig struct {
	CacheSize int
	NumShards int
}

const (
	minShardSize = 10
	minNumShards = 2
)

func (c LRUShardConfig) newCache() (Cache, error) {
	size := c.CacheSize * CacheScale / 100
	if size < 1 {
		logger.Error("negative cache size", "cacheSize", size, "cacheScale", CacheScale)
		return nil, errors.New("must provide a positive size")
	}

	numShards := c.makeNumShardsPowOf2()
	if c.NumShards != numShards {
		logger.Warn("numShards adjusted", "expected", c.NumShards, "actual", numShards)
	}

	shard := &lruShardCache{shards: make([]*lru.Cache, numShards), shardIndexMask: numShards - 1}
	shardSize := size / numShards
	for i := 0; i < numShards; i++ {
		l, err := lru.NewWithEvict(shardSize, nil)
		if err != nil {
			return nil, err
		}
		shard.shards[i] = l
	}
	return shard, nil
}

func (c LRUShardConfig) makeNumShardsPowOf2() int {
	maxNumShards := float64(c.CacheSize * CacheScale / 100 / minShardSize)
	numShards := int(math.Min(float64(c.NumShards), maxNumShards))

	prev := minNumShards
	for numShards > minNumShards {
		prev = numShards
		numShards = numShards & (numShards - 1)
	}
	return prev
}

// ARCConfig configures an adaptive-replacement cache.
type ARCConfig struct {
	CacheSize int
}

func (c ARCConfig) newCache() (Cache, error) {
	a, err := lru.NewARC(c.CacheSize)
	return &arcCache{a}, err
}
