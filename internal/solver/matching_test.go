package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func swapIntent(id, inAsset, inAmount, outAsset string) Intent {
	return Intent{
		ID:       id,
		Owner:    "0xowner-" + id,
		Category: CategorySwap,
		Input:    AssetAmount{Asset: inAsset, Amount: inAmount},
		Outputs:  []OutputSpec{{Asset: outAsset}},
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		name string
		a, b Intent
		want bool
	}{
		{
			name: "reverse asset pair",
			a:    swapIntent("a", "USDC", "100", "WETH"),
			b:    swapIntent("b", "WETH", "100", "USDC"),
			want: true,
		},
		{
			name: "same input asset",
			a:    swapIntent("a", "USDC", "100", "WETH"),
			b:    swapIntent("b", "USDC", "100", "WETH"),
			want: false,
		},
		{
			name: "one direction only",
			a:    swapIntent("a", "USDC", "100", "WETH"),
			b:    swapIntent("b", "WETH", "100", "DAI"),
			want: false,
		},
		{
			name: "non-swap category",
			a: Intent{
				ID:       "a",
				Category: "transfer",
				Input:    AssetAmount{Asset: "USDC", Amount: "100"},
				Outputs:  []OutputSpec{{Asset: "WETH"}},
			},
			b:    swapIntent("b", "WETH", "100", "USDC"),
			want: false,
		},
		{
			name: "counterpart asset among several outputs",
			a: Intent{
				ID:       "a",
				Category: CategorySwap,
				Input:    AssetAmount{Asset: "USDC", Amount: "100"},
				Outputs:  []OutputSpec{{Asset: "DAI"}, {Asset: "WETH"}},
			},
			b:    swapIntent("b", "WETH", "100", "USDC"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compatible(&tt.a, &tt.b))
		})
	}
}

func TestFindMatchesExact(t *testing.T) {
	intents := []Intent{
		swapIntent("a", "USDC", "1000000", "WETH"),
		swapIntent("b", "WETH", "1000000", "USDC"),
	}

	matches := FindMatches(intents)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].IntentA.ID)
	assert.Equal(t, "b", matches[0].IntentB.ID)
	assert.Equal(t, MatchExact, matches[0].Type)
	assert.Equal(t, "0", matches[0].Surplus)
}

func TestFindMatchesPartial(t *testing.T) {
	intents := []Intent{
		swapIntent("a", "USDC", "1000000", "WETH"),
		swapIntent("b", "WETH", "2000000", "USDC"),
	}

	matches := FindMatches(intents)
	require.Len(t, matches, 1)
	assert.Equal(t, MatchPartial, matches[0].Type)
	assert.Equal(t, "1000000", matches[0].Surplus)
	assert.Equal(t, "1000000", matches[0].FilledAmount().String())
	require.NotNil(t, matches[0].LargerSide())
	assert.Equal(t, "b", matches[0].LargerSide().ID)
}

func TestFindMatchesSameInputAsset(t *testing.T) {
	intents := []Intent{
		swapIntent("a", "USDC", "100", "WETH"),
		swapIntent("b", "USDC", "100", "WETH"),
	}
	assert.Empty(t, FindMatches(intents))
}

func TestFindMatchesNonSwapNeverMatched(t *testing.T) {
	transfer := swapIntent("a", "USDC", "100", "WETH")
	transfer.Category = "transfer"
	intents := []Intent{
		transfer,
		swapIntent("b", "WETH", "100", "USDC"),
	}
	assert.Empty(t, FindMatches(intents))
}

func TestFindMatchesEmpty(t *testing.T) {
	assert.Empty(t, FindMatches(nil))
	assert.Empty(t, FindMatches([]Intent{}))
}

func TestFindMatchesFirstFit(t *testing.T) {
	// Both b and c could take a; first-fit binds a to b and leaves c
	// for the residual path.
	intents := []Intent{
		swapIntent("a", "USDC", "100", "WETH"),
		swapIntent("b", "WETH", "100", "USDC"),
		swapIntent("c", "WETH", "100", "USDC"),
	}

	matches := FindMatches(intents)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].IntentA.ID)
	assert.Equal(t, "b", matches[0].IntentB.ID)

	residual := Residual(intents, matches)
	require.Len(t, residual, 1)
	assert.Equal(t, "c", residual[0].ID)
}

func TestFindMatchesConsumedOnlyOnce(t *testing.T) {
	intents := []Intent{
		swapIntent("a", "USDC", "100", "WETH"),
		swapIntent("b", "WETH", "100", "USDC"),
		swapIntent("c", "USDC", "100", "WETH"),
		swapIntent("d", "WETH", "100", "USDC"),
	}

	matches := FindMatches(intents)
	require.Len(t, matches, 2)

	seen := make(map[string]int)
	for _, m := range matches {
		seen[m.IntentA.ID]++
		seen[m.IntentB.ID]++
		assert.NotEqual(t, m.IntentA.ID, m.IntentB.ID)
	}
	for id, count := range seen {
		assert.Equalf(t, 1, count, "intent %s bound more than once", id)
	}
}

func TestFindMatchesOutputOrdering(t *testing.T) {
	intents := []Intent{
		swapIntent("a", "USDC", "100", "WETH"),
		swapIntent("b", "DAI", "100", "USDT"),
		swapIntent("c", "WETH", "100", "USDC"),
		swapIntent("d", "USDT", "100", "DAI"),
	}

	matches := FindMatches(intents)
	require.Len(t, matches, 2)
	// Ordered by the earlier-indexed intent of each pair.
	assert.Equal(t, "a", matches[0].IntentA.ID)
	assert.Equal(t, "b", matches[1].IntentA.ID)
}

func TestResidualCoversEverythingUnmatched(t *testing.T) {
	intents := []Intent{
		swapIntent("a", "USDC", "100", "WETH"),
		swapIntent("b", "WETH", "100", "USDC"),
		swapIntent("c", "DAI", "100", "USDT"),
	}
	transfer := swapIntent("t", "USDC", "50", "WETH")
	transfer.Category = "transfer"
	intents = append(intents, transfer)

	matches := FindMatches(intents)
	residual := Residual(intents, matches)

	covered := make(map[string]bool)
	for _, m := range matches {
		covered[m.IntentA.ID] = true
		covered[m.IntentB.ID] = true
	}
	for _, intent := range residual {
		assert.Falsef(t, covered[intent.ID], "intent %s both matched and residual", intent.ID)
		covered[intent.ID] = true
	}
	assert.Len(t, covered, len(intents))
}

func TestValidateIntent(t *testing.T) {
	valid := swapIntent("a", "USDC", "100", "WETH")
	require.NoError(t, ValidateIntent(&valid))

	noID := valid
	noID.ID = ""
	assert.Error(t, ValidateIntent(&noID))

	badAmount := valid
	badAmount.Input.Amount = "1.5e3x"
	assert.Error(t, ValidateIntent(&badAmount))

	negative := valid
	negative.Input.Amount = "-5"
	assert.Error(t, ValidateIntent(&negative))

	noOutputs := valid
	noOutputs.Outputs = nil
	assert.Error(t, ValidateIntent(&noOutputs))

	badMin := valid
	badMin.Constraints = &Constraints{MinOutputs: map[string]string{"WETH": "abc"}}
	assert.Error(t, ValidateIntent(&badMin))
}
