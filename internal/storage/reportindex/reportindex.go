// Package reportindex implements a secondary, queryable index over
// finished data-request reports (SPEC_FULL.md component K), backed by
// GORM and MySQL. It is additive: the blob store (internal/storage) is
// still the sole source of truth per spec.md §6; this index exists only
// so an operator can query finished requests by epoch or witness count
// without deserializing every blob-store value.
package reportindex

import (
	"fmt"

	"github.com/jinzhu/gorm"
	_ "github.com/go-sql-driver/mysql"

	"github.com/poenetwork/node/internal/chain"
	"github.com/poenetwork/node/internal/log"
)

var logger = log.NewModuleLogger(log.ModuleStorage)

// ReportRecord is the GORM model a finished DataRequestReport projects
// into, flattening the fields an operator is likely to filter or sort by.
type ReportRecord struct {
	ID              uint   `gorm:"primary_key"`
	PointerTxID     string `gorm:"index;size:64"`
	PointerIndex    uint32
	InclusionEpoch  uint32 `gorm:"index"`
	Stage           string
	Witnesses       uint16
	BackupWitnesses uint16
	CommitCount     int
	RevealCount     int
	HasTally        bool
}

// Index wraps a GORM connection to a MySQL-backed reporting database.
type Index struct {
	db *gorm.DB
}

// Open connects to dsn (a standard go-sql-driver/mysql DSN) and ensures the
// reports table exists.
func Open(dsn string) (*Index, error) {
	db, err := gorm.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("reportindex: open: %w", err)
	}
	if err := db.AutoMigrate(&ReportRecord{}).Error; err != nil {
		return nil, fmt.Errorf("reportindex: migrate: %w", err)
	}
	return &Index{db: db}, nil
}

// Record projects a finished report into the index. Failures are logged
// and swallowed, matching spec.md §7's policy for non-authoritative
// persistence paths: the blob store already holds the report of record.
func (idx *Index) Record(report chain.DataRequestReport) {
	rec := ReportRecord{
		PointerTxID:     report.Pointer.TransactionID.String(),
		PointerIndex:    report.Pointer.OutputIndex,
		InclusionEpoch:  report.Info.InclusionEpoch,
		Stage:           report.Info.Stage.String(),
		Witnesses:       report.Info.Output.Witnesses,
		BackupWitnesses: report.Info.Output.BackupWitnesses,
		CommitCount:     len(report.Info.Commits),
		RevealCount:     len(report.Info.Reveals),
		HasTally:        report.Info.Tally != nil,
	}
	if err := idx.db.Create(&rec).Error; err != nil {
		logger.Error("failed to record data-request report", "pointer", report.Pointer, "err", err)
	}
}

// Close releases the underlying connection pool.
func (idx *Index) Close() error {
	return idx.db.Close()
}
