package hasher

import (
	"math/big"

	"github.com/iden3/go-iden3-crypto/constants"
	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/pkg/errors"

	"github.com/linguohua/neptune/types"
)

// maxPoseidonArity is the widest preimage the poseidon sponge parameters
// cover.
const maxPoseidonArity = 16

// PoseidonEngine computes single poseidon digests over fixed-arity tuples of
// field elements.
type PoseidonEngine struct {
	arity int
}

func NewPoseidonEngine(arity int) (*PoseidonEngine, error) {
	if arity < 1 || arity > maxPoseidonArity {
		return nil, errors.Wrap(
			errors.Errorf(
				"arity %d outside supported range [1, %d]",
				arity,
				maxPoseidonArity,
			),
			"new poseidon engine",
		)
	}

	return &PoseidonEngine{
		arity: arity,
	}, nil
}

func (e *PoseidonEngine) Arity() int {
	return e.arity
}

func (e *PoseidonEngine) Hash(preimage []*big.Int) (*big.Int, error) {
	if len(preimage) != e.arity {
		return nil, errors.Wrap(
			errors.Errorf(
				"preimage length %d does not match arity %d",
				len(preimage),
				e.arity,
			),
			"hash",
		)
	}

	digest, err := poseidon.Hash(preimage)
	if err != nil {
		return nil, errors.Wrap(err, "hash")
	}

	return digest, nil
}

// Modulus returns the scalar field modulus every element must stay below.
func Modulus() *big.Int {
	return new(big.Int).Set(constants.Q)
}

var _ types.HashEngine = (*PoseidonEngine)(nil)
