package hasher

import (
	"encoding/binary"
	"math/big"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"

	"github.com/linguohua/neptune/types"
)

type cachingEngine struct {
	types.HashEngine

	digests *lru.Cache[[32]byte, *big.Int]
}

var _ types.HashEngine = (*cachingEngine)(nil)

// NewCachingEngine wraps an engine with a fixed-size memoization of tuple
// digests. Uniform-tree workloads hash the same tuple at every level, so
// repeated uniform-root checks resolve from the cache after first use.
func NewCachingEngine(
	engine types.HashEngine,
	size int,
) (types.HashEngine, error) {
	digests, err := lru.New[[32]byte, *big.Int](size)
	if err != nil {
		return nil, errors.Wrap(err, "new caching engine")
	}

	return &cachingEngine{
		HashEngine: engine,
		digests:    digests,
	}, nil
}

func (c *cachingEngine) Hash(preimage []*big.Int) (*big.Int, error) {
	key := preimageKey(preimage)
	if digest, ok := c.digests.Get(key); ok {
		cacheHitsTotal.Inc()
		return new(big.Int).Set(digest), nil
	}
	cacheMissesTotal.Inc()

	digest, err := c.HashEngine.Hash(preimage)
	if err != nil {
		return nil, err
	}

	c.digests.Add(key, new(big.Int).Set(digest))
	return digest, nil
}

// preimageKey derives a fixed-width cache key from the sign- and
// length-prefixed element encoding. Bytes alone would alias elements sharing
// a byte stream or differing only in sign; the primitive reduces negative
// inputs mod Q, so those hash to distinct digests and must key separately.
func preimageKey(preimage []*big.Int) [32]byte {
	h := sha3.New256()
	var prefix [5]byte
	for _, element := range preimage {
		b := element.Bytes()
		prefix[0] = byte(element.Sign() + 1)
		binary.BigEndian.PutUint32(prefix[1:], uint32(len(b)))
		h.Write(prefix[:])
		h.Write(b)
	}

	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}
