package types

import "math/big"

// BatchHasher computes many independent fixed-arity hash computations per
// call, preserving input order. Preimages are flat: tuple i occupies
// preimages[i*Arity() : (i+1)*Arity()].
type BatchHasher interface {
	Arity() int
	// MaxBatchSize is the largest number of tuples a single call may carry.
	// Callers chunk their work by it; it bounds the backend's peak working
	// set and is not a scheduling mechanism.
	MaxBatchSize() int
	Hash(preimages []*big.Int) ([]*big.Int, error)
	// HashInto writes one digest per tuple into out, which must hold
	// exactly len(preimages)/Arity() elements.
	HashInto(out []*big.Int, preimages []*big.Int) error
}

// HashEngine computes one digest from one fixed-arity preimage tuple. It is
// the unbatched path used when no batch backend is configured, and the
// primitive behind uniform-tree shortcuts.
type HashEngine interface {
	Arity() int
	Hash(preimage []*big.Int) (*big.Int, error)
}
