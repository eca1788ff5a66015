package slide

import "github.com/matzehuels/blockdeck/pkg/blocks"

// Numbering maps each numbered list item id to its 1-based position within
// its contiguous run of numbered items. A run ends at any block that is not
// a numbered item.
func Numbering(seq []blocks.Block) map[string]int {
	out := make(map[string]int)
	counter := 0
	for i, b := range seq {
		if b.Kind != blocks.KindNumberedListItem {
			continue
		}
		if i == 0 || seq[i-1].Kind != blocks.KindNumberedListItem {
			counter = 1
		} else {
			counter++
		}
		out[b.ID] = counter
	}
	return out
}

// letter returns the nested marker for index i: a, b, ... z, then aa, ab.
func letter(i int) string {
	if i < 26 {
		return string(rune('a' + i))
	}
	return letter(i/26-1) + letter(i%26)
}
