// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package storage

import (
	"context"
	"fmt"

	"github.com/steakknife/bloomfilter"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/poenetwork/node/internal/chain"
	"github.com/poenetwork/node/internal/codec"
	"github.com/poenetwork/node/internal/common"
	"github.com/poenetwork/node/internal/log"
)

// bloomM/bloomK size the fast-reject filter for roughly one million items
// at a ~1% false-positive rate. GetItem uses it only to skip the disk read
// when the filter proves the hash absent.
const (
	bloomM = 9_600_000
	bloomK = 7
)

// InventoryStore is a goleveldb-backed append-only store for blocks,
// transactions, and data-request reports, keyed by content hash
// (spec.md §6). A Bloom filter short-circuits GetItem misses without a
// disk read, grounded on the teacher's leveldb_database.go bloom-filter
// table option applied at the application layer instead of leveldb's own.
type InventoryStore struct {
	db     *leveldb.DB
	bloom  *bloomfilter.Filter
	logger log.Logger
}

// NewInventoryStore opens (creating if necessary) a goleveldb database at
// dir.
func NewInventoryStore(dir string) (*InventoryStore, error) {
	opts := &opt.Options{
		OpenFilesCacheCapacity: 64,
		BlockCacheCapacity:     8 * opt.MiB,
		WriteBuffer:            4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	}
	db, err := leveldb.OpenFile(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open leveldb at %q: %w", dir, err)
	}
	bloom, err := bloomfilter.New(bloomM, bloomK)
	if err != nil {
		return nil, fmt.Errorf("storage: init bloom filter: %w", err)
	}
	return &InventoryStore{db: db, bloom: bloom, logger: log.NewModuleLogger(log.ModuleStorage)}, nil
}

// AddItem persists item keyed by its content hash.
func (s *InventoryStore) AddItem(_ context.Context, item chain.InventoryItem) error {
	hash := item.Hash(algorithmOf(item))
	raw, err := codec.Marshal(item)
	if err != nil {
		return fmt.Errorf("storage: encode inventory item: %w", err)
	}
	if err := s.db.Put(hash.Bytes[:], raw, nil); err != nil {
		return err
	}
	s.bloom.Add(bloomfilter.NewHash64(fnv64a(hash.Bytes[:])))
	return nil
}

// GetItem looks up an item by hash, consulting the Bloom filter first to
// avoid a disk read on a definite miss.
func (s *InventoryStore) GetItem(_ context.Context, hash common.Hash) (chain.InventoryItem, bool, error) {
	if !s.bloom.Contains(bloomfilter.NewHash64(fnv64a(hash.Bytes[:]))) {
		return chain.InventoryItem{}, false, nil
	}

	raw, err := s.db.Get(hash.Bytes[:], nil)
	if err == leveldb.ErrNotFound {
		return chain.InventoryItem{}, false, nil
	}
	if err != nil {
		return chain.InventoryItem{}, false, err
	}

	var item chain.InventoryItem
	if err := codec.Unmarshal(raw, &item); err != nil {
		return chain.InventoryItem{}, false, fmt.Errorf("storage: decode inventory item: %w", err)
	}
	return item, true, nil
}

// Close releases the underlying database handle.
func (s *InventoryStore) Close() error {
	return s.db.Close()
}

func algorithmOf(item chain.InventoryItem) common.Algorithm {
	switch item.Kind {
	case chain.InventoryBlock:
		return common.SHA256
	default:
		return common.SHA256
	}
}

// fnv64a folds an arbitrary-length hash into the single uint64 the Bloom
// filter's hash.Hash64 wrapper expects.
func fnv64a(b []byte) uint64 {
	var h uint64 = 14695981039346656037
	for _, c := range b {
		h ^= uint64(c)
		h *= 1099511628211
	}
	return h
}
