package solver

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchIntents() []Intent {
	return []Intent{
		swapIntent("a", "USDC", "100", "WETH"),
		swapIntent("b", "WETH", "100", "USDC"),
		swapIntent("c", "DAI", "50", "USDT"),
	}
}

func p2pOutcome(intentID, asset, amount, surplus string) Outcome {
	return Outcome{
		IntentID: intentID,
		Outputs:  []AssetAmount{{Asset: asset, Amount: amount}},
		Surplus:  surplus,
		Path:     PathP2P,
	}
}

func TestBuildNoOutcomes(t *testing.T) {
	assembler := NewSolutionAssembler(batchIntents())
	_, err := assembler.Build("batch-1", "0xsolver")
	assert.ErrorIs(t, err, ErrIncompleteSolution)
}

func TestBuildUnknownIntent(t *testing.T) {
	assembler := NewSolutionAssembler(batchIntents())
	assembler.AddOutcome(p2pOutcome("ghost", "WETH", "100", "0"))
	_, err := assembler.Build("batch-1", "0xsolver")
	assert.ErrorIs(t, err, ErrInconsistentCoverage)
}

func TestBuildDuplicateIntent(t *testing.T) {
	assembler := NewSolutionAssembler(batchIntents())
	assembler.AddOutcome(p2pOutcome("a", "WETH", "100", "0"))
	assembler.AddOutcome(p2pOutcome("a", "WETH", "100", "0"))
	_, err := assembler.Build("batch-1", "0xsolver")
	assert.ErrorIs(t, err, ErrInconsistentCoverage)
}

func TestBuildTotalSurplusExactSum(t *testing.T) {
	assembler := NewSolutionAssembler(batchIntents())
	assembler.AddOutcome(p2pOutcome("a", "WETH", "100", "0.1"))
	assembler.AddOutcome(p2pOutcome("b", "USDC", "100", "0.2"))

	solution, err := assembler.Build("batch-1", "0xsolver")
	require.NoError(t, err)
	// 0.1 + 0.2 is exactly 0.3 in decimal arithmetic, never 0.30000000000000004.
	assert.Equal(t, "0.3", solution.TotalSurplus)
}

func TestBuildSolutionFields(t *testing.T) {
	assembler := NewSolutionAssembler(batchIntents())
	assembler.AddOutcome(p2pOutcome("a", "WETH", "100", "0"))
	assembler.MarkUnresolved("c")

	solution, err := assembler.Build("batch-1", "0xsolver")
	require.NoError(t, err)

	assert.NotEmpty(t, solution.ID)
	assert.Equal(t, "batch-1", solution.BatchID)
	assert.Equal(t, "0xsolver", solution.Solver)
	assert.Equal(t, []string{"c"}, solution.Unresolved)
	assert.False(t, solution.CreatedAt.IsZero())
	// 256-bit digest, lowercase hex.
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), solution.CommitmentHash)
}

func TestCommitmentDeterminism(t *testing.T) {
	outcomes := []Outcome{
		p2pOutcome("a", "WETH", "100", "0"),
		p2pOutcome("b", "USDC", "100", "0"),
	}

	first := ComputeCommitment("batch-1", "0xsolver", outcomes)
	second := ComputeCommitment("batch-1", "0xsolver", outcomes)
	assert.Equal(t, first, second)

	// Two independent assemblies over the same inputs agree with the
	// standalone computation.
	buildTwice := func() string {
		assembler := NewSolutionAssembler(batchIntents())
		for _, outcome := range outcomes {
			assembler.AddOutcome(outcome)
		}
		solution, err := assembler.Build("batch-1", "0xsolver")
		require.NoError(t, err)
		return solution.CommitmentHash
	}
	assert.Equal(t, first, buildTwice())
	assert.Equal(t, first, buildTwice())
}

func TestCommitmentSensitivity(t *testing.T) {
	outcomes := []Outcome{
		p2pOutcome("a", "WETH", "100", "0"),
		p2pOutcome("b", "USDC", "100", "0"),
	}
	base := ComputeCommitment("batch-1", "0xsolver", outcomes)

	reordered := []Outcome{outcomes[1], outcomes[0]}
	assert.NotEqual(t, base, ComputeCommitment("batch-1", "0xsolver", reordered))

	assert.NotEqual(t, base, ComputeCommitment("batch-2", "0xsolver", outcomes))
	assert.NotEqual(t, base, ComputeCommitment("batch-1", "0xother", outcomes))

	tweaked := make([]Outcome, len(outcomes))
	copy(tweaked, outcomes)
	tweaked[0].Surplus = "1"
	assert.NotEqual(t, base, ComputeCommitment("batch-1", "0xsolver", tweaked))

	tweaked[0].Surplus = "0"
	tweaked[0].Outputs = []AssetAmount{{Asset: "WETH", Amount: "101"}}
	assert.NotEqual(t, base, ComputeCommitment("batch-1", "0xsolver", tweaked))
}

func TestCommitmentFieldBoundaries(t *testing.T) {
	// Length prefixes keep adjacent fields from bleeding into each
	// other: ("ab","c") and ("a","bc") must not collide.
	left := ComputeCommitment("ab", "c", []Outcome{p2pOutcome("a", "X", "1", "0")})
	right := ComputeCommitment("a", "bc", []Outcome{p2pOutcome("a", "X", "1", "0")})
	assert.NotEqual(t, left, right)
}

func TestBuildInvalidSurplus(t *testing.T) {
	assembler := NewSolutionAssembler(batchIntents())
	assembler.AddOutcome(p2pOutcome("a", "WETH", "100", "not-a-number"))
	_, err := assembler.Build("batch-1", "0xsolver")
	assert.Error(t, err)
}
