package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poenetwork/node/internal/common"
)

type recordingPeerLayer struct {
	anycasts []AnycastMessage
}

func (r *recordingPeerLayer) Broadcast(context.Context, SendInventoryItem) error { return nil }

func (r *recordingPeerLayer) Anycast(_ context.Context, msg AnycastMessage) error {
	r.anycasts = append(r.anycasts, msg)
	return nil
}

func TestParkRequestsMissingPredecessor(t *testing.T) {
	consts := testConsts()
	pred := common.Sum(consts.HashAlgorithm, []byte("missing-predecessor"))
	orphan := makeBlock(3, pred, []Transaction{mintTx(0)}, consts.HashAlgorithm, 1)

	peers := &recordingPeerLayer{}
	buf := NewPendingBlockBuffer()
	require.NoError(t, buf.Park(context.Background(), orphan, peers))

	require.Len(t, peers.anycasts, 1)
	require.NotNil(t, peers.anycasts[0].RequestBlockHash)
	assert.True(t, peers.anycasts[0].RequestBlockHash.Equal(pred))
	assert.NotEmpty(t, peers.anycasts[0].CorrelationID, "anycast should carry a correlation id")

	parked, ok := buf.Peek()
	require.True(t, ok)
	assert.Equal(t, orphan.Epoch(), parked.Epoch())
}

// TestResolveByHashReFeedsParkedBlock covers S2: once the missing
// predecessor arrives, the parked orphan resolves and the slot empties.
func TestResolveByHashReFeedsParkedBlock(t *testing.T) {
	consts := testConsts()
	pred := common.Sum(consts.HashAlgorithm, []byte("missing-predecessor"))
	orphan := makeBlock(3, pred, []Transaction{mintTx(0)}, consts.HashAlgorithm, 1)

	buf := NewPendingBlockBuffer()
	require.NoError(t, buf.Park(context.Background(), orphan, &recordingPeerLayer{}))

	resolved, ok := buf.ResolveByHash(pred)
	require.True(t, ok)
	assert.True(t, resolved.Hash(consts.HashAlgorithm).Equal(orphan.Hash(consts.HashAlgorithm)))

	_, stillParked := buf.Peek()
	assert.False(t, stillParked, "resolving must clear the slot")
}

func TestResolveByHashIgnoresUnrelatedHash(t *testing.T) {
	consts := testConsts()
	pred := common.Sum(consts.HashAlgorithm, []byte("missing-predecessor"))
	orphan := makeBlock(3, pred, []Transaction{mintTx(0)}, consts.HashAlgorithm, 1)

	buf := NewPendingBlockBuffer()
	require.NoError(t, buf.Park(context.Background(), orphan, &recordingPeerLayer{}))

	_, ok := buf.ResolveByHash(common.Sum(consts.HashAlgorithm, []byte("unrelated")))
	assert.False(t, ok)

	_, stillParked := buf.Peek()
	assert.True(t, stillParked)
}

func TestClearIfStaleTipEvictsWhenPredecessorIsNotNewTip(t *testing.T) {
	consts := testConsts()
	pred := common.Sum(consts.HashAlgorithm, []byte("missing-predecessor"))
	orphan := makeBlock(3, pred, []Transaction{mintTx(0)}, consts.HashAlgorithm, 1)

	buf := NewPendingBlockBuffer()
	require.NoError(t, buf.Park(context.Background(), orphan, &recordingPeerLayer{}))

	buf.ClearIfStaleTip(common.Sum(consts.HashAlgorithm, []byte("some-other-tip")))
	_, ok := buf.Peek()
	assert.False(t, ok)
}

func TestClearIfStaleTipKeepsParkedBlockWhenPredecessorIsNewTip(t *testing.T) {
	consts := testConsts()
	pred := common.Sum(consts.HashAlgorithm, []byte("missing-predecessor"))
	orphan := makeBlock(3, pred, []Transaction{mintTx(0)}, consts.HashAlgorithm, 1)

	buf := NewPendingBlockBuffer()
	require.NoError(t, buf.Park(context.Background(), orphan, &recordingPeerLayer{}))

	buf.ClearIfStaleTip(pred)
	_, ok := buf.Peek()
	assert.True(t, ok)
}
