// Package neptune builds Merkle-style commitment trees over batches of
// poseidon field elements, with a pluggable batched-hash backend and an
// unbatched scalar fallback. Trees are computed in place over one backing
// buffer and returned as a base row plus a pruned upper tree.
package neptune

import (
	"math/big"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/linguohua/neptune/config"
	"github.com/linguohua/neptune/hasher"
	"github.com/linguohua/neptune/types"
)

// NewTreeBuilderFromConfig assembles a TreeBuilder from configuration:
// engine, optional digest cache, and the selected backend's batcher.
func NewTreeBuilderFromConfig(
	cfg *config.Config,
	logger *zap.Logger,
	arity int,
	leafCount int,
	data []*big.Int,
) (*TreeBuilder, error) {
	c := cfg.WithDefaults()

	engine, err := engineFromConfig(&c, arity)
	if err != nil {
		return nil, errors.Wrap(err, "new tree builder from config")
	}

	backend, err := backendFromConfig(&c, logger)
	if err != nil {
		return nil, errors.Wrap(err, "new tree builder from config")
	}

	batcher, err := batcherFromBackend(backend, arity, c.MaxBatchSize)
	if err != nil {
		return nil, errors.Wrap(err, "new tree builder from config")
	}

	return NewTreeBuilder(
		logger,
		batcher,
		engine,
		leafCount,
		c.RowsToDiscard,
		data,
	)
}

// NewColumnTreeBuilderFromConfig assembles a ColumnTreeBuilder from
// configuration. Both stages draw their batchers from one backend session so
// execution resources are acquired once.
func NewColumnTreeBuilderFromConfig(
	cfg *config.Config,
	logger *zap.Logger,
	columnArity int,
	treeArity int,
	leafCount int,
	data []*big.Int,
) (*ColumnTreeBuilder, error) {
	c := cfg.WithDefaults()

	columnEngine, err := engineFromConfig(&c, columnArity)
	if err != nil {
		return nil, errors.Wrap(err, "new column tree builder from config")
	}

	treeEngine, err := engineFromConfig(&c, treeArity)
	if err != nil {
		return nil, errors.Wrap(err, "new column tree builder from config")
	}

	backend, err := backendFromConfig(&c, logger)
	if err != nil {
		return nil, errors.Wrap(err, "new column tree builder from config")
	}

	columnBatcher, err := batcherFromBackend(
		backend,
		columnArity,
		c.MaxColumnBatchSize,
	)
	if err != nil {
		return nil, errors.Wrap(err, "new column tree builder from config")
	}

	treeBatcher, err := batcherFromBackend(backend, treeArity, c.MaxBatchSize)
	if err != nil {
		return nil, errors.Wrap(err, "new column tree builder from config")
	}

	return NewColumnTreeBuilder(
		logger,
		columnBatcher,
		treeBatcher,
		columnEngine,
		treeEngine,
		leafCount,
		data,
	)
}

func engineFromConfig(cfg *config.Config, arity int) (types.HashEngine, error) {
	engine, err := hasher.NewPoseidonEngine(arity)
	if err != nil {
		return nil, err
	}

	if cfg.HashCacheSize > 0 {
		return hasher.NewCachingEngine(engine, cfg.HashCacheSize)
	}

	return engine, nil
}

func backendFromConfig(
	cfg *config.Config,
	logger *zap.Logger,
) (*hasher.Backend, error) {
	switch cfg.Backend {
	case "", config.BackendScalar:
		return nil, nil
	case config.BackendCPU:
		return hasher.NewBackend(logger, cfg.Workers), nil
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "backend %q", cfg.Backend)
	}
}

func batcherFromBackend(
	backend *hasher.Backend,
	arity int,
	maxBatchSize int,
) (types.BatchHasher, error) {
	if backend == nil {
		return nil, nil
	}

	batcher, err := backend.NewBatcher(arity, maxBatchSize)
	if err != nil {
		return nil, err
	}

	return batcher, nil
}
