package sim

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// NewSeed generates a random non-zero run seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	for {
		if _, err := crand.Read(b[:]); err != nil {
			return 0, fmt.Errorf("read random seed: %w", err)
		}
		if s := int64(binary.LittleEndian.Uint64(b[:])); s != 0 {
			return s, nil
		}
	}
}

// DeriveSeed mixes a run seed with an index (splitmix64). Every trial, and
// every player within a trial, gets its own stream, independent of which
// worker runs it.
func DeriveSeed(seed int64, index int64) int64 {
	z := uint64(seed) + uint64(index+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}

// trialRands returns the two players' random sources for trial i.
func trialRands(seed int64, trial int64) [2]*rand.Rand {
	ts := DeriveSeed(seed, trial)
	return [2]*rand.Rand{
		rand.New(rand.NewSource(DeriveSeed(ts, 0))),
		rand.New(rand.NewSource(DeriveSeed(ts, 1))),
	}
}
