package hasher_test

import (
	"math/big"
	"testing"

	"github.com/iden3/go-iden3-crypto/constants"
	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linguohua/neptune/hasher"
)

func TestPoseidonEngine(t *testing.T) {
	engine, err := hasher.NewPoseidonEngine(2)
	require.NoError(t, err)
	assert.Equal(t, 2, engine.Arity())

	preimage := []*big.Int{big.NewInt(1), big.NewInt(2)}

	digest, err := engine.Hash(preimage)
	assert.NoError(t, err)

	expected, err := poseidon.Hash(preimage)
	require.NoError(t, err)
	assert.Equal(t, 0, digest.Cmp(expected))

	other, err := engine.Hash([]*big.Int{big.NewInt(2), big.NewInt(1)})
	assert.NoError(t, err)
	assert.NotEqual(t, 0, digest.Cmp(other))
}

func TestPoseidonEngineValidation(t *testing.T) {
	tests := []struct {
		name        string
		arity       int
		expectError string
	}{
		{"zero arity", 0, "outside supported range"},
		{"negative arity", -1, "outside supported range"},
		{"arity beyond sponge width", 17, "outside supported range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hasher.NewPoseidonEngine(tt.arity)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}

	engine, err := hasher.NewPoseidonEngine(4)
	require.NoError(t, err)

	_, err = engine.Hash([]*big.Int{big.NewInt(1)})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "does not match arity")
}

func TestPoseidonEngineFieldRange(t *testing.T) {
	engine, err := hasher.NewPoseidonEngine(2)
	require.NoError(t, err)

	// The modulus itself is the smallest value outside the field.
	_, err = engine.Hash([]*big.Int{hasher.Modulus(), big.NewInt(1)})
	assert.Error(t, err)
}

func TestModulus(t *testing.T) {
	modulus := hasher.Modulus()
	assert.Equal(t, 0, modulus.Cmp(constants.Q))

	// Callers get a copy, not the shared constant.
	modulus.Sub(modulus, big.NewInt(1))
	assert.Equal(t, 0, hasher.Modulus().Cmp(constants.Q))
}

func TestPoseidonBatchHasher(t *testing.T) {
	l, _ := zap.NewProduction()

	backend := hasher.NewBackend(l, 4)
	batcher, err := backend.NewBatcher(2, 64)
	require.NoError(t, err)
	assert.Equal(t, 2, batcher.Arity())
	assert.Equal(t, 64, batcher.MaxBatchSize())

	engine, err := hasher.NewPoseidonEngine(2)
	require.NoError(t, err)

	preimages := make([]*big.Int, 10)
	for i := range preimages {
		preimages[i] = big.NewInt(int64(i + 1))
	}

	digests, err := batcher.Hash(preimages)
	assert.NoError(t, err)
	require.Equal(t, 5, len(digests))

	// Outputs line up with their tuples regardless of which goroutine
	// computed them.
	for i := 0; i < 5; i++ {
		expected, err := engine.Hash(preimages[i*2 : (i+1)*2])
		require.NoError(t, err)
		assert.Equal(t, 0, digests[i].Cmp(expected), "tuple %d", i)
	}
}

// More tuples than workers leaves one goroutine with a short span; the
// partition must still cover every tuple exactly once.
func TestPoseidonBatchHasherUnevenSpans(t *testing.T) {
	l, _ := zap.NewProduction()

	preimages := make([]*big.Int, 66)
	for i := range preimages {
		preimages[i] = big.NewInt(int64(i))
	}

	serialBatcher, err := hasher.NewBackend(l, 1).NewBatcher(2, 64)
	require.NoError(t, err)
	serial, err := serialBatcher.Hash(preimages)
	require.NoError(t, err)

	parallelBatcher, err := hasher.NewBackend(l, 8).NewBatcher(2, 64)
	require.NoError(t, err)
	parallel, err := parallelBatcher.Hash(preimages)
	assert.NoError(t, err)

	require.Equal(t, len(serial), len(parallel))
	for i := range serial {
		assert.Equal(t, 0, serial[i].Cmp(parallel[i]), "tuple %d", i)
	}
}

func TestPoseidonBatchHasherValidation(t *testing.T) {
	l, _ := zap.NewProduction()

	backend := hasher.NewBackend(l, 2)
	batcher, err := backend.NewBatcher(2, 4)
	require.NoError(t, err)

	_, err = batcher.Hash(makeElements(5))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not a multiple of arity")

	_, err = batcher.Hash(makeElements(10))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum")

	err = batcher.HashInto(make([]*big.Int, 3), makeElements(4))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "does not match tuple count")
}

func TestPoseidonBatchHasherEmpty(t *testing.T) {
	l, _ := zap.NewProduction()

	batcher, err := hasher.NewBackend(l, 2).NewBatcher(2, 4)
	require.NoError(t, err)

	digests, err := batcher.Hash(nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(digests))
}

func TestNewBatcherValidation(t *testing.T) {
	l, _ := zap.NewProduction()

	backend := hasher.NewBackend(l, 2)

	_, err := backend.NewBatcher(2, 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")

	_, err = backend.NewBatcher(17, 16)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "outside supported range")
}

func TestCachingEngine(t *testing.T) {
	inner, err := hasher.NewPoseidonEngine(2)
	require.NoError(t, err)

	engine, err := hasher.NewCachingEngine(inner, 16)
	require.NoError(t, err)
	assert.Equal(t, 2, engine.Arity())

	preimage := []*big.Int{big.NewInt(3), big.NewInt(7)}

	first, err := engine.Hash(preimage)
	require.NoError(t, err)
	second, err := engine.Hash(preimage)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Cmp(second))

	expected, err := inner.Hash(preimage)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Cmp(expected))

	// Returned digests are copies; mutating one must not poison the cache.
	first.Add(first, big.NewInt(1))
	third, err := engine.Hash(preimage)
	require.NoError(t, err)
	assert.Equal(t, 0, third.Cmp(expected))
}

// Elements sharing a byte stream must not collide: (0x0102, 0x03) and
// (0x01, 0x0203) concatenate to the same bytes.
func TestCachingEngineKeyDisambiguation(t *testing.T) {
	inner, err := hasher.NewPoseidonEngine(2)
	require.NoError(t, err)

	engine, err := hasher.NewCachingEngine(inner, 16)
	require.NoError(t, err)

	first, err := engine.Hash([]*big.Int{big.NewInt(0x0102), big.NewInt(0x03)})
	require.NoError(t, err)
	second, err := engine.Hash([]*big.Int{big.NewInt(0x01), big.NewInt(0x0203)})
	require.NoError(t, err)

	assert.NotEqual(t, 0, first.Cmp(second))
}

// The primitive accepts negative inputs and reduces them mod Q, so -5 and 5
// hash to different digests and must occupy different cache slots.
func TestCachingEngineSignDisambiguation(t *testing.T) {
	inner, err := hasher.NewPoseidonEngine(2)
	require.NoError(t, err)

	engine, err := hasher.NewCachingEngine(inner, 16)
	require.NoError(t, err)

	negative := []*big.Int{big.NewInt(-5), big.NewInt(1)}
	positive := []*big.Int{big.NewInt(5), big.NewInt(1)}

	first, err := engine.Hash(negative)
	require.NoError(t, err)
	second, err := engine.Hash(positive)
	require.NoError(t, err)
	assert.NotEqual(t, 0, first.Cmp(second))

	// Each cached digest matches the undecorated engine.
	expected, err := inner.Hash(negative)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Cmp(expected))

	expected, err = inner.Hash(positive)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Cmp(expected))
}

func TestNewCachingEngineValidation(t *testing.T) {
	inner, err := hasher.NewPoseidonEngine(2)
	require.NoError(t, err)

	_, err = hasher.NewCachingEngine(inner, 0)
	assert.Error(t, err)
}

func makeElements(count int) []*big.Int {
	elements := make([]*big.Int, count)
	for i := range elements {
		elements[i] = big.NewInt(int64(i + 1))
	}
	return elements
}
