package sml

import (
	"hash/crc32"
	"math/rand"
	"testing"
)

func TestChecksumChunkingInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sizes := []int{0, 1, 100, checksumChunk - 1, checksumChunk, checksumChunk + 1, 3*checksumChunk + 17}

	noop := func() error { return nil }
	for _, n := range sizes {
		body := make([]byte, n)
		rng.Read(body)

		got, err := bodyChecksum(body, noop)
		if err != nil {
			t.Fatalf("size %d: %v", n, err)
		}
		want := crc32.Checksum(body, castagnoli)
		if got != want {
			t.Errorf("size %d: chunked CRC %#010x, one-shot CRC %#010x", n, got, want)
		}
	}
}

func TestChecksumYieldsPerChunk(t *testing.T) {
	body := make([]byte, 2*checksumChunk+1)
	calls := 0
	_, err := bodyChecksum(body, func() error { calls++; return nil })
	if err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("checkpoint called %d times, want 3", calls)
	}
}
