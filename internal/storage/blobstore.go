// Copyright 2018 The klaytn Authors
// This file is part of the klaytn library.
//
// The klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the klaytn library. If not, see <http://www.gnu.org/licenses/>.

// Package storage implements the external collaborators spec.md §6 names
// as interfaces but leaves unspecified: the blob store and the inventory
// store, grounded on the teacher's storage/database package (BadgerDB and
// goleveldb backends).
package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger"

	"github.com/poenetwork/node/internal/log"
)

const gcThreshold = int64(1 << 30)
const sizeGCTickerTime = 1 * time.Minute

// BlobStore is a BadgerDB-backed key/value store implementing
// chain.BlobStore: put(key, bytes)/get(key) over byte-string keys, used to
// persist chain-state and data-request reports.
type BlobStore struct {
	fn       string
	db       *badger.DB
	gcTicker *time.Ticker
	logger   log.Logger
}

// NewBlobStore opens (creating if necessary) a BadgerDB at dbDir.
func NewBlobStore(dbDir string) (*BlobStore, error) {
	localLogger := log.NewModuleLogger(log.ModuleStorage).NewWith("dbDir", dbDir)

	if fi, err := os.Stat(dbDir); err == nil {
		if !fi.IsDir() {
			return nil, fmt.Errorf("storage: %q exists and is not a directory", dbDir)
		}
	} else if os.IsNotExist(err) {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("storage: mkdir %q: %w", dbDir, err)
		}
	} else {
		return nil, fmt.Errorf("storage: stat %q: %w", dbDir, err)
	}

	opts := badger.DefaultOptions
	opts.Dir = dbDir
	opts.ValueDir = dbDir

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger at %q: %w", dbDir, err)
	}

	bs := &BlobStore{fn: dbDir, db: db, logger: localLogger, gcTicker: time.NewTicker(sizeGCTickerTime)}
	go bs.runValueLogGC()
	return bs, nil
}

func (bs *BlobStore) runValueLogGC() {
	_, lastValueLogSize := bs.db.Size()
	for range bs.gcTicker.C {
		_, currValueLogSize := bs.db.Size()
		if currValueLogSize-lastValueLogSize < gcThreshold {
			continue
		}
		if err := bs.db.RunValueLogGC(0.5); err != nil {
			bs.logger.Error("value log gc failed", "err", err)
			continue
		}
		_, lastValueLogSize = bs.db.Size()
	}
}

// Put writes value under key.
func (bs *BlobStore) Put(_ context.Context, key []byte, value []byte) error {
	txn := bs.db.NewTransaction(true)
	defer txn.Discard()
	if err := txn.Set(key, value); err != nil {
		return err
	}
	return txn.Commit(nil)
}

// Get reads the value at key, reporting false if absent.
func (bs *BlobStore) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Close stops the GC ticker and closes the underlying database.
func (bs *BlobStore) Close() error {
	bs.gcTicker.Stop()
	if err := bs.db.Close(); err != nil {
		bs.logger.Error("failed to close blob store", "err", err)
		return err
	}
	bs.logger.Info("blob store closed")
	return nil
}
