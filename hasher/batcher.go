package hasher

import (
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/linguohua/neptune/types"
	"github.com/linguohua/neptune/utils"
)

// Backend is a CPU hashing session. Batchers derived from one backend share
// its worker budget, so a multi-stage build acquires execution resources
// once rather than per stage.
type Backend struct {
	logger  *zap.Logger
	workers int
}

func NewBackend(logger *zap.Logger, workers int) *Backend {
	return &Backend{
		logger:  logger.Named("hasher"),
		workers: utils.WorkerCount(workers),
	}
}

// NewBatcher derives a batcher for one arity from the session.
func (b *Backend) NewBatcher(arity int, maxBatchSize int) (
	*PoseidonBatchHasher,
	error,
) {
	if maxBatchSize < 1 {
		return nil, errors.Wrap(
			errors.Errorf("max batch size %d must be positive", maxBatchSize),
			"new batcher",
		)
	}

	engine, err := NewPoseidonEngine(arity)
	if err != nil {
		return nil, errors.Wrap(err, "new batcher")
	}

	b.logger.Info(
		"new poseidon batcher",
		zap.Int("arity", arity),
		zap.Int("max_batch_size", maxBatchSize),
		zap.Int("workers", b.workers),
	)

	return &PoseidonBatchHasher{
		logger:       b.logger,
		engine:       engine,
		maxBatchSize: maxBatchSize,
		workers:      b.workers,
	}, nil
}

// PoseidonBatchHasher hashes batches of fixed-arity tuples across a bounded
// set of goroutines. Outputs are written by tuple index, so ordering never
// depends on goroutine scheduling.
type PoseidonBatchHasher struct {
	logger       *zap.Logger
	engine       *PoseidonEngine
	maxBatchSize int
	workers      int
}

func (h *PoseidonBatchHasher) Arity() int {
	return h.engine.arity
}

func (h *PoseidonBatchHasher) MaxBatchSize() int {
	return h.maxBatchSize
}

func (h *PoseidonBatchHasher) Hash(preimages []*big.Int) ([]*big.Int, error) {
	if len(preimages)%h.engine.arity != 0 {
		return nil, errors.Wrap(
			errors.Errorf(
				"preimage length %d is not a multiple of arity %d",
				len(preimages),
				h.engine.arity,
			),
			"hash",
		)
	}

	out := make([]*big.Int, len(preimages)/h.engine.arity)
	if err := h.HashInto(out, preimages); err != nil {
		return nil, errors.Wrap(err, "hash")
	}

	return out, nil
}

func (h *PoseidonBatchHasher) HashInto(
	out []*big.Int,
	preimages []*big.Int,
) error {
	timer := prometheus.NewTimer(
		hashBatchDuration.WithLabelValues("cpu"),
	)
	defer timer.ObserveDuration()

	arity := h.engine.arity
	if len(preimages)%arity != 0 {
		hashBatchesTotal.WithLabelValues("cpu", "error").Inc()
		return errors.Wrap(
			errors.Errorf(
				"preimage length %d is not a multiple of arity %d",
				len(preimages),
				arity,
			),
			"hash into",
		)
	}

	tuples := len(preimages) / arity
	if tuples > h.maxBatchSize {
		hashBatchesTotal.WithLabelValues("cpu", "error").Inc()
		return errors.Wrap(
			errors.Errorf(
				"batch of %d tuples exceeds maximum %d",
				tuples,
				h.maxBatchSize,
			),
			"hash into",
		)
	}

	if len(out) != tuples {
		hashBatchesTotal.WithLabelValues("cpu", "error").Inc()
		return errors.Wrap(
			errors.Errorf(
				"output length %d does not match tuple count %d",
				len(out),
				tuples,
			),
			"hash into",
		)
	}

	if tuples == 0 {
		hashBatchesTotal.WithLabelValues("cpu", "success").Inc()
		return nil
	}

	workers := h.workers
	if workers > tuples {
		workers = tuples
	}
	span := (tuples + workers - 1) / workers

	var eg errgroup.Group
	for w := 0; w < workers; w++ {
		start := w * span
		end := min(start+span, tuples)
		if start >= end {
			break
		}

		eg.Go(func() error {
			for i := start; i < end; i++ {
				digest, err := poseidon.Hash(preimages[i*arity : (i+1)*arity])
				if err != nil {
					return errors.Wrap(err, "hash into")
				}
				out[i] = digest
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		hashBatchesTotal.WithLabelValues("cpu", "error").Inc()
		return err
	}

	hashBatchesTotal.WithLabelValues("cpu", "success").Inc()
	hashedTuplesTotal.WithLabelValues("cpu").Add(float64(tuples))
	return nil
}

var _ types.BatchHasher = (*PoseidonBatchHasher)(nil)
