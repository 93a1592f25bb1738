package solver

import (
	"github.com/shopspring/decimal"
)

// FindMatches pairs complementary swap intents from a batch snapshot.
//
// The policy is greedy, single pass and order preserving: intents are
// visited in their given order, and each not-yet-consumed swap intent
// binds to the first compatible counterpart found among the later
// intents. Both sides of a pair are consumed immediately and take no
// further part in the pass. Non-swap intents are skipped entirely and
// implicitly remain unmatched.
//
// Absence of a counterpart is not an error; unmatched intents simply
// flow to the residual routing path. Worst case is O(n^2) over the
// eligible intents, which is fine under the protocol's batch ceiling.
func FindMatches(intents []Intent) []Match {
	matches := make([]Match, 0)
	consumed := make([]bool, len(intents))

	for i := range intents {
		if consumed[i] || intents[i].Category != CategorySwap {
			continue
		}
		for j := i + 1; j < len(intents); j++ {
			if consumed[j] {
				continue
			}
			if !Compatible(&intents[i], &intents[j]) {
				continue
			}
			matchType, surplus := classify(&intents[i], &intents[j])
			matches = append(matches, Match{
				IntentA: intents[i],
				IntentB: intents[j],
				Type:    matchType,
				Surplus: surplus,
			})
			consumed[i] = true
			consumed[j] = true
			break
		}
	}

	return matches
}

// Residual returns the intents of the batch that are not bound by any
// of the given matches, preserving batch order. These are the intents
// that must be filled through external routing.
func Residual(intents []Intent, matches []Match) []Intent {
	matched := make(map[string]struct{}, len(matches)*2)
	for _, m := range matches {
		matched[m.IntentA.ID] = struct{}{}
		matched[m.IntentB.ID] = struct{}{}
	}

	residual := make([]Intent, 0, len(intents))
	for _, intent := range intents {
		if _, ok := matched[intent.ID]; !ok {
			residual = append(residual, intent)
		}
	}
	return residual
}

// classify compares the traded amounts of a compatible pair. Equal
// amounts settle exactly; otherwise the match is partial and the
// surplus is the exact decimal difference (larger minus smaller) that
// cannot be filled peer-to-peer.
//
// Amounts are guaranteed parseable here: ingestion validates every
// intent before it reaches the engine.
func classify(a, b *Intent) (MatchType, string) {
	amountA, _ := decimal.NewFromString(a.Input.Amount)
	amountB, _ := decimal.NewFromString(b.Input.Amount)

	if amountA.Equal(amountB) {
		return MatchExact, "0"
	}
	return MatchPartial, amountA.Sub(amountB).Abs().String()
}

// FilledAmount returns the quantity actually exchanged peer-to-peer by
// a match: the smaller of the two traded amounts.
func (m *Match) FilledAmount() decimal.Decimal {
	amountA, _ := decimal.NewFromString(m.IntentA.Input.Amount)
	amountB, _ := decimal.NewFromString(m.IntentB.Input.Amount)
	if amountA.LessThan(amountB) {
		return amountA
	}
	return amountB
}

// LargerSide returns the intent whose traded amount exceeds its
// counterpart's, or nil for an exact match. The excess of this side is
// what the partial-remainder policy decides about.
func (m *Match) LargerSide() *Intent {
	if m.Type != MatchPartial {
		return nil
	}
	amountA, _ := decimal.NewFromString(m.IntentA.Input.Amount)
	amountB, _ := decimal.NewFromString(m.IntentB.Input.Amount)
	if amountA.GreaterThan(amountB) {
		return &m.IntentA
	}
	return &m.IntentB
}
