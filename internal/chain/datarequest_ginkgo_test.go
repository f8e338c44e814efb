package chain

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/poenetwork/node/internal/common"
)

func TestDataRequestLifecycle(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "DataRequestPool lifecycle suite")
}

// Covers S5 from the end-to-end scenario list: a data request walks every
// stage (WaitingCommits -> WaitingReveals -> WaitingTally -> Finished),
// deadline-forced by UpdateDataRequestStages exactly as the orchestrator
// drives it at each epoch transition.
var _ = Describe("DataRequestPool", func() {
	var (
		pool   *DataRequestPool
		consts = testConsts()
		drPtr  OutputPointer
	)

	BeforeEach(func() {
		pool = NewDataRequestPool()

		creation := Transaction{
			Outputs: []Output{DataRequestOutput{
				Witnesses: 1,
				Amount:    1000,
			}},
		}
		creationHash := creation.Hash(consts.HashAlgorithm)
		drPtr = OutputPointer{TransactionID: creationHash, OutputIndex: 0}

		block0 := makeBlock(0, common.ZeroHash, []Transaction{creation}, consts.HashAlgorithm, 1)
		pool.ProcessBlock(block0, consts)
	})

	It("starts in WaitingCommits with deadlines derived from the inclusion epoch", func() {
		info, ok := pool.Get(drPtr)
		Expect(ok).To(BeTrue())
		Expect(info.Stage).To(Equal(WaitingCommits))
		Expect(info.CommitDeadline).To(Equal(uint32(consts.CommitDeadlinePeriod)))
	})

	It("walks the full lifecycle to Finished as commits, reveals and a tally arrive", func() {
		commitTx := Transaction{
			Inputs:  []Input{DataRequestInput{OutputPointer: drPtr}},
			Outputs: []Output{CommitOutput{Commitment: common.Sum(consts.HashAlgorithm, []byte("witness-1-commitment"))}},
		}
		block1 := makeBlock(1, common.ZeroHash, []Transaction{commitTx}, consts.HashAlgorithm, 1)
		pool.ProcessBlock(block1, consts)

		info, _ := pool.Get(drPtr)
		Expect(info.Stage).To(Equal(WaitingCommits))
		Expect(info.Commits).To(HaveLen(1))

		// Commit deadline (epoch 2) passes: force the transition.
		pool.UpdateDataRequestStages(info.CommitDeadline)
		info, _ = pool.Get(drPtr)
		Expect(info.Stage).To(Equal(WaitingReveals))

		commitTxHash := commitTx.Hash(consts.HashAlgorithm)
		commitPtr := OutputPointer{TransactionID: commitTxHash, OutputIndex: 0}
		revealTx := Transaction{
			Inputs:  []Input{CommitInput{OutputPointer: commitPtr, Nonce: 1, Reveal: []byte("42")}},
			Outputs: []Output{RevealOutput{Reveal: []byte("42")}},
		}
		block2 := makeBlock(2, common.ZeroHash, []Transaction{revealTx}, consts.HashAlgorithm, 1)
		pool.ProcessBlock(block2, consts)

		info, _ = pool.Get(drPtr)
		Expect(info.Stage).To(Equal(WaitingReveals))
		Expect(info.Reveals).To(HaveLen(1))

		// Reveal deadline passes: force the transition into WaitingTally.
		pool.UpdateDataRequestStages(info.RevealDeadline)
		info, _ = pool.Get(drPtr)
		Expect(info.Stage).To(Equal(WaitingTally))

		revealTxHash := revealTx.Hash(consts.HashAlgorithm)
		revealPtr := OutputPointer{TransactionID: revealTxHash, OutputIndex: 0}
		tallyTx := Transaction{
			Inputs:  []Input{RevealInput{OutputPointer: revealPtr}},
			Outputs: []Output{TallyOutput{Result: []byte("42")}},
		}
		block3 := makeBlock(3, common.ZeroHash, []Transaction{tallyTx}, consts.HashAlgorithm, 1)
		pool.ProcessBlock(block3, consts)

		info, ok := pool.Get(drPtr)
		Expect(ok).To(BeTrue())
		Expect(info.Stage).To(Equal(Finished))
		Expect(info.Tally).NotTo(BeNil())
		Expect(info.Tally.Result).To(Equal([]byte("42")))

		reports := pool.FinishedDataRequests()
		Expect(reports).To(HaveLen(1))
		Expect(reports[0].Pointer).To(Equal(drPtr))

		// Draining clears the queue until the next request finishes.
		Expect(pool.FinishedDataRequests()).To(BeEmpty())
	})

	It("forces a deadline-expired request through every remaining stage even with no reveals", func() {
		info, _ := pool.Get(drPtr)
		pool.UpdateDataRequestStages(info.CommitDeadline)
		pool.UpdateDataRequestStages(info.RevealDeadline)
		pool.UpdateDataRequestStages(info.TallyDeadline)

		info, ok := pool.Get(drPtr)
		Expect(ok).To(BeTrue())
		Expect(info.Stage).To(Equal(Finished))
		Expect(info.Tally).To(BeNil(), "a deadline-forced finish with no tally transaction carries no result")
	})
})
