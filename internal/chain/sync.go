package chain

import (
	"context"
	"time"

	"go.uber.org/atomic"

	"github.com/poenetwork/node/internal/log"
	"github.com/poenetwork/node/internal/params"
)

var syncLogger = log.NewModuleLogger(log.ModuleSync)

// SyncDriver is a self-rescheduling timer that anycasts an
// inventory-exchange request to the peer layer at one of two cadences
// (spec.md §4.G). It holds no chain state of its own; Synced()/MarkSyncedTick
// on Manager are the source of truth for whether the node is caught up.
type SyncDriver struct {
	manager *Manager
	peers   PeerLayer
	consts  params.ConsensusConstants

	// mineTicks is read by Mine() from whatever goroutine drives the block
	// proposer, concurrently with Run()'s ticking, hence atomic rather than
	// a plain int guarded by the mailbox (the proposer lives outside it).
	mineTicks atomic.Int32
}

// NewSyncDriver wires the driver to the manager whose synced state it
// polls and the peer layer it anycasts through.
func NewSyncDriver(manager *Manager, peers PeerLayer, consts params.ConsensusConstants) *SyncDriver {
	return &SyncDriver{manager: manager, peers: peers, consts: consts}
}

// Run ticks until ctx is done, switching between SynchronizingPeriod and
// SyncedPeriod cadences depending on Manager.Synced(). The mine flag is set
// true only once two consecutive ticks have observed synced==true, matching
// the original's "mine only while operating at synced_period" rule.
func (d *SyncDriver) Run(ctx context.Context) {
	period := d.consts.SynchronizingPeriod
	timer := time.NewTimer(period)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			d.tick(ctx)

			if d.manager.Synced() {
				d.mineTicks.Inc()
				period = d.consts.SyncedPeriod
			} else {
				d.mineTicks.Store(0)
				period = d.consts.SynchronizingPeriod
			}
			timer.Reset(period)
		}
	}
}

// Mine reports whether the driver has observed two consecutive synced
// ticks, the condition under which the node may act as a block proposer.
func (d *SyncDriver) Mine() bool {
	return d.mineTicks.Load() >= 2
}

func (d *SyncDriver) tick(ctx context.Context) {
	msg := AnycastMessage{InventoryExchange: true, CorrelationID: newCorrelationID()}
	if err := d.peers.Anycast(ctx, msg); err != nil {
		syncLogger.Warn("inventory-exchange anycast failed", "correlation_id", msg.CorrelationID, "err", err)
	}
}
