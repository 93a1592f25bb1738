package solver

// Compatible reports whether two intents can settle directly against
// each other: both must be swap intents trading the same asset pair in
// opposite directions, i.e. A's input asset is among B's desired
// outputs and B's input asset is among A's desired outputs.
//
// Intents sharing the same input asset are never compatible, even when
// their output specs would otherwise cross.
func Compatible(a, b *Intent) bool {
	if a.Category != CategorySwap || b.Category != CategorySwap {
		return false
	}
	if a.Input.Asset == b.Input.Asset {
		return false
	}
	return wantsAsset(b, a.Input.Asset) && wantsAsset(a, b.Input.Asset)
}

// wantsAsset reports whether the intent lists the asset among its
// desired outputs.
func wantsAsset(intent *Intent, asset string) bool {
	for _, output := range intent.Outputs {
		if output.Asset == asset {
			return true
		}
	}
	return false
}
