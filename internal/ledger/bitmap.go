package ledger

import "math/bits"

// tickBitmap marks initialized compressed ticks (tick / spacing) in 256-bit words.
type tickBitmap struct {
	words   map[int16][4]uint64
	minWord int16
	maxWord int16
}

func newTickBitmap(minCompressed, maxCompressed int32) *tickBitmap {
	minWord, _ := bitPosition(minCompressed)
	maxWord, _ := bitPosition(maxCompressed)
	return &tickBitmap{
		words:   make(map[int16][4]uint64),
		minWord: minWord,
		maxWord: maxWord,
	}
}

// bitPosition splits a compressed tick into its word index and bit index.
// The arithmetic shift floors negative ticks into the correct word.
func bitPosition(compressed int32) (int16, uint) {
	return int16(compressed >> 8), uint(compressed & 0xff)
}

func (b *tickBitmap) set(compressed int32) {
	wordPos, bitPos := bitPosition(compressed)
	word := b.words[wordPos]
	word[bitPos/64] |= 1 << (bitPos % 64)
	b.words[wordPos] = word
}

func (b *tickBitmap) clear(compressed int32) {
	wordPos, bitPos := bitPosition(compressed)
	word, ok := b.words[wordPos]
	if !ok {
		return
	}
	word[bitPos/64] &^= 1 << (bitPos % 64)
	if word == ([4]uint64{}) {
		delete(b.words, wordPos)
		return
	}
	b.words[wordPos] = word
}

func (b *tickBitmap) isSet(compressed int32) bool {
	wordPos, bitPos := bitPosition(compressed)
	word, ok := b.words[wordPos]
	if !ok {
		return false
	}
	return word[bitPos/64]&(1<<(bitPos%64)) != 0
}

// nextAtOrAbove returns the smallest set compressed tick >= compressed.
func (b *tickBitmap) nextAtOrAbove(compressed int32) (int32, bool) {
	wordPos, bitPos := bitPosition(compressed)
	for w := int32(wordPos); w <= int32(b.maxWord); w++ {
		word, ok := b.words[int16(w)]
		if !ok {
			continue
		}
		start := uint(0)
		if w == int32(wordPos) {
			start = bitPos
		}
		if found, ok := firstSetFrom(word, start); ok {
			return w<<8 | int32(found), true
		}
	}
	return 0, false
}

// nextAtOrBelow returns the largest set compressed tick <= compressed.
func (b *tickBitmap) nextAtOrBelow(compressed int32) (int32, bool) {
	wordPos, bitPos := bitPosition(compressed)
	for w := int32(wordPos); w >= int32(b.minWord); w-- {
		word, ok := b.words[int16(w)]
		if !ok {
			continue
		}
		end := uint(255)
		if w == int32(wordPos) {
			end = bitPos
		}
		if found, ok := lastSetUpTo(word, end); ok {
			return w<<8 | int32(found), true
		}
	}
	return 0, false
}

func (b *tickBitmap) clone() *tickBitmap {
	out := &tickBitmap{
		words:   make(map[int16][4]uint64, len(b.words)),
		minWord: b.minWord,
		maxWord: b.maxWord,
	}
	for k, v := range b.words {
		out.words[k] = v
	}
	return out
}

func firstSetFrom(word [4]uint64, start uint) (uint, bool) {
	for limb := start / 64; limb < 4; limb++ {
		v := word[limb]
		if limb == start/64 {
			v &= ^uint64(0) << (start % 64)
		}
		if v != 0 {
			return limb*64 + uint(bits.TrailingZeros64(v)), true
		}
	}
	return 0, false
}

func lastSetUpTo(word [4]uint64, end uint) (uint, bool) {
	for limb := int(end / 64); limb >= 0; limb-- {
		v := word[limb]
		if uint(limb) == end/64 {
			v &= ^uint64(0) >> (63 - end%64)
		}
		if v != 0 {
			return uint(limb)*64 + 63 - uint(bits.LeadingZeros64(v)), true
		}
	}
	return 0, false
}
