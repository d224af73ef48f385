package mutator

import (
	"bytes"
	"math/rand"
	"testing"
)

func seeded(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }

func TestBitFlipMutatorChangesExactlyFlipBitsBits(t *testing.T) {
	input := []byte{0x00, 0x00, 0x00, 0x00}
	m := NewBitFlipMutator(2)
	out := m.Mutate(seeded(1), input)

	diffBits := 0
	for i := range input {
		diffBits += popcount(input[i] ^ out[i])
	}
	if diffBits != 2 {
		t.Fatalf("expected exactly 2 flipped bits, got %d", diffBits)
	}
	if input[0] != 0x00 {
		t.Fatal("Mutate must not modify the input slice in place")
	}
}

func TestBitFlipMutatorDefaultsInvalidWidth(t *testing.T) {
	m := NewBitFlipMutator(3)
	if m.Name() != "bitflip/1" {
		t.Fatalf("expected invalid width to default to bitflip/1, got %s", m.Name())
	}
}

func TestByteFlipMutatorXorsWithFF(t *testing.T) {
	input := []byte{0x00, 0x00, 0x00}
	m := NewByteFlipMutator(1)
	out := m.Mutate(seeded(2), input)

	changed := 0
	for i := range input {
		if out[i] != input[i] {
			if out[i] != 0xFF {
				t.Fatalf("expected changed byte to be 0xFF, got %#x", out[i])
			}
			changed++
		}
	}
	if changed != 1 {
		t.Fatalf("expected exactly 1 changed byte, got %d", changed)
	}
}

func TestArithmeticMutatorAppliesNonZeroDelta(t *testing.T) {
	input := []byte{10, 10, 10, 10}
	m := NewArithmeticMutator(1, 5)
	out := m.Mutate(seeded(3), input)

	if bytes.Equal(input, out) {
		t.Fatal("expected arithmetic mutation to change the input")
	}
}

func TestArithmeticMutatorShortInputUnchanged(t *testing.T) {
	m := NewArithmeticMutator(4, 5)
	input := []byte{1, 2}
	out := m.Mutate(seeded(4), input)
	if !bytes.Equal(input, out) {
		t.Fatal("expected input shorter than width to be returned unchanged")
	}
}

func TestInterestingValueMutatorUsesKnownValues(t *testing.T) {
	input := []byte{9, 9, 9, 9} // 9 is not among interesting8's values
	m := NewInterestingValueMutator(1)
	out := m.Mutate(seeded(5), input)

	found := false
	for _, v := range interesting8 {
		for _, b := range out {
			if b == byte(v) {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected at least one byte to match an interesting 8-bit value")
	}
}

func TestByteSwapMutatorSwapsAdjacentBytes(t *testing.T) {
	input := []byte{0x01, 0x02}
	m := NewByteSwapMutator(2)
	out := m.Mutate(seeded(6), input)

	if out[0] != 0x02 || out[1] != 0x01 {
		t.Fatalf("expected bytes swapped, got %v", out)
	}
}

func TestRandomByteMutatorChangesUpToCount(t *testing.T) {
	input := make([]byte, 8)
	m := NewRandomByteMutator(3)
	out := m.Mutate(seeded(7), input)
	if len(out) != len(input) {
		t.Fatalf("expected length unchanged, got %d", len(out))
	}
	changed := 0
	for i := range input {
		if out[i] != input[i] {
			changed++
		}
	}
	if changed > 3 {
		t.Fatalf("expected at most 3 changed bytes, got %d", changed)
	}
}

func TestDeleteMutatorShrinksInput(t *testing.T) {
	input := []byte("hello world")
	m := NewDeleteMutator(4)
	out := m.Mutate(seeded(8), input)

	if len(out) >= len(input) {
		t.Fatalf("expected output shorter than input, got len %d vs %d", len(out), len(input))
	}
}

func TestDeleteMutatorSingleByteInputUnchanged(t *testing.T) {
	m := NewDeleteMutator(4)
	input := []byte{1}
	out := m.Mutate(seeded(9), input)
	if !bytes.Equal(input, out) {
		t.Fatal("expected a single-byte input to be returned unchanged")
	}
}

func TestInsertMutatorGrowsInput(t *testing.T) {
	input := []byte("hi")
	m := NewInsertMutator(4)
	out := m.Mutate(seeded(10), input)

	if len(out) <= len(input) {
		t.Fatalf("expected output longer than input, got len %d vs %d", len(out), len(input))
	}
}

func TestCloneMutatorGrowsInput(t *testing.T) {
	input := []byte("clone me please")
	m := NewCloneMutator(4)
	out := m.Mutate(seeded(11), input)

	if len(out) <= len(input) {
		t.Fatalf("expected output longer than input, got len %d vs %d", len(out), len(input))
	}
}

func TestCloneMutatorEmptyInputUnchanged(t *testing.T) {
	m := NewCloneMutator(4)
	var input []byte
	out := m.Mutate(seeded(12), input)
	if len(out) != 0 {
		t.Fatalf("expected empty input to stay empty, got %v", out)
	}
}

func popcount(b byte) int {
	n := 0
	for b != 0 {
		n += int(b & 1)
		b >>= 1
	}
	return n
}
