package neptune

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/linguohua/neptune/types"
)

// TreeBuilder accumulates leaves into a backing buffer and computes the full
// tree over them row by row, bottom-up and in place. The buffer holds the
// leaf row followed by every computed row; the last element is the root.
//
// The buffer is borrowed, never retained past a build: a finalize call runs
// the computation, resets the fill cursor, and leaves the builder ready for
// an independent tree of the same shape.
type TreeBuilder struct {
	logger        *zap.Logger
	batcher       types.BatchHasher
	engine        types.HashEngine
	leafCount     int
	arity         int
	treeHeight    int
	rowsToDiscard int
	// Index of the first unfilled datum.
	fillIndex int
	data      []*big.Int
}

// NewTreeBuilder validates the tree shape and binds the backing buffer. The
// engine is required and fixes the arity; the batcher is optional, nil
// selects the unbatched scalar path. A nil buffer allocates one of exactly
// the intermediate size; a caller-owned buffer must at least hold the leaf
// row at construction and the full intermediate tree by build time.
func NewTreeBuilder(
	logger *zap.Logger,
	batcher types.BatchHasher,
	engine types.HashEngine,
	leafCount int,
	rowsToDiscard int,
	data []*big.Int,
) (*TreeBuilder, error) {
	if engine == nil {
		return nil, errors.Wrap(
			errors.New("missing hash engine"),
			"new tree builder",
		)
	}

	arity := engine.Arity()
	if batcher != nil && batcher.Arity() != arity {
		return nil, errors.Wrap(
			errors.Errorf(
				"batcher arity %d does not match engine arity %d",
				batcher.Arity(),
				arity,
			),
			"new tree builder",
		)
	}

	// A non-advancing batch bound would stall the row walk.
	if batcher != nil && batcher.MaxBatchSize() < 1 {
		return nil, errors.Wrap(
			errors.Errorf(
				"batcher max batch size %d must be positive",
				batcher.MaxBatchSize(),
			),
			"new tree builder",
		)
	}

	treeHeight, err := TreeHeight(leafCount, arity)
	if err != nil {
		return nil, errors.Wrap(err, "new tree builder")
	}

	// Cannot discard the base row or the root.
	if rowsToDiscard < 0 || rowsToDiscard >= treeHeight {
		return nil, errors.Wrap(
			errors.Errorf(
				"rows to discard %d out of range for tree height %d",
				rowsToDiscard,
				treeHeight,
			),
			"new tree builder",
		)
	}

	treeSize, err := TreeSize(leafCount, arity, rowsToDiscard)
	if err != nil {
		return nil, errors.Wrap(err, "new tree builder")
	}

	if data == nil {
		intermediateSize, err := IntermediateSize(leafCount, arity)
		if err != nil {
			return nil, errors.Wrap(err, "new tree builder")
		}
		data = make([]*big.Int, intermediateSize)
	} else if len(data) < leafCount {
		return nil, errors.Wrap(
			errors.Errorf(
				"buffer length %d below leaf capacity %d",
				len(data),
				leafCount,
			),
			"new tree builder",
		)
	}

	logger.Info(
		"new tree builder",
		zap.Int("tree_size", treeSize),
		zap.Int("rows_to_discard", rowsToDiscard),
		zap.Int("leaf_count", leafCount),
	)

	return &TreeBuilder{
		logger:        logger,
		batcher:       batcher,
		engine:        engine,
		leafCount:     leafCount,
		arity:         arity,
		treeHeight:    treeHeight,
		rowsToDiscard: rowsToDiscard,
		fillIndex:     0,
		data:          data,
	}, nil
}

// AddLeaves copies leaves into the buffer at the fill cursor. An append that
// would exceed the leaf capacity fails with ErrTooManyLeaves before any slot
// is written.
func (t *TreeBuilder) AddLeaves(leaves []*big.Int) error {
	start := t.fillIndex
	end := start + len(leaves)

	if end > t.leafCount {
		buildOperationsTotal.WithLabelValues("add_leaves", "error").Inc()
		return errors.Wrap(ErrTooManyLeaves, "add leaves")
	}

	for i, leaf := range leaves {
		t.data[start+i] = new(big.Int).Set(leaf)
	}
	t.fillIndex = end

	buildOperationsTotal.WithLabelValues("add_leaves", "success").Inc()
	return nil
}

// AddFinalLeaves appends the final chunk, computes the tree over the filled
// buffer, and returns the leaf row and the retained upper rows, root last.
// The fill cursor is reset whether or not the build succeeds, so the builder
// takes a fresh leaf row next either way.
func (t *TreeBuilder) AddFinalLeaves(leaves []*big.Int) (
	[]*big.Int,
	[]*big.Int,
	error,
) {
	if err := t.AddLeaves(leaves); err != nil {
		return nil, nil, errors.Wrap(err, "add final leaves")
	}

	baseRow, treeToKeep, err := t.buildTree(t.data, t.fillIndex)
	t.Reset()
	if err != nil {
		return nil, nil, errors.Wrap(err, "add final leaves")
	}

	return baseRow, treeToKeep, nil
}

// Reset zeroes the fill cursor so the builder can be reused for an
// independent tree of the same shape. Buffer contents are left as they are.
func (t *TreeBuilder) Reset() {
	t.fillIndex = 0
}

// buildTree is the canonical row-by-row computation. The buffer always
// arrives as an argument so the column composition can hand over its shared
// buffer; fillIndex is the number of leaf slots the caller has filled.
//
// Each row's parents are written into the region directly after the row, so
// a row is fully read before the next one is written and the computation
// stays in place.
func (t *TreeBuilder) buildTree(data []*big.Int, fillIndex int) (
	[]*big.Int,
	[]*big.Int,
	error,
) {
	timer := prometheus.NewTimer(
		buildDuration.WithLabelValues("build_tree"),
	)
	defer timer.ObserveDuration()

	finalTreeSize, err := TreeSize(t.leafCount, t.arity, t.rowsToDiscard)
	if err != nil {
		buildOperationsTotal.WithLabelValues("build_tree", "error").Inc()
		return nil, nil, errors.Wrap(err, "build tree")
	}

	intermediateSize, err := IntermediateSize(t.leafCount, t.arity)
	if err != nil {
		buildOperationsTotal.WithLabelValues("build_tree", "error").Inc()
		return nil, nil, errors.Wrap(err, "build tree")
	}

	if len(data) < intermediateSize {
		buildOperationsTotal.WithLabelValues("build_tree", "error").Inc()
		t.logger.Error(
			"tree buffer too small",
			zap.Int("buffer_len", len(data)),
			zap.Int("required", intermediateSize),
		)
		return nil, nil, errors.Wrapf(
			ErrBufferTooSmall,
			"buffer length %d below required %d",
			len(data),
			intermediateSize,
		)
	}

	if fillIndex != t.leafCount {
		buildOperationsTotal.WithLabelValues("build_tree", "error").Inc()
		return nil, nil, errors.Wrap(
			errors.Errorf(
				"leaf row incomplete: %d of %d filled",
				fillIndex,
				t.leafCount,
			),
			"build tree",
		)
	}

	if t.batcher != nil {
		if err := t.buildRowsBatched(data, intermediateSize); err != nil {
			buildOperationsTotal.WithLabelValues("build_tree", "error").Inc()
			return nil, nil, errors.Wrap(err, "build tree")
		}
	} else {
		start, end := 0, t.arity
		for i := t.leafCount; i < intermediateSize; i++ {
			digest, err := t.engine.Hash(data[start:end])
			if err != nil {
				buildOperationsTotal.WithLabelValues("build_tree", "error").Inc()
				return nil, nil, errors.Wrap(err, "build tree")
			}
			data[i] = digest
			start += t.arity
			end += t.arity
		}
	}

	baseRow := copyRow(data[:t.leafCount])
	treeToKeep := copyRow(data[intermediateSize-finalTreeSize : intermediateSize])

	buildOperationsTotal.WithLabelValues("build_tree", "success").Inc()
	return baseRow, treeToKeep, nil
}

// buildRowsBatched walks the rows bottom-up, submitting each row to the
// batcher in chunks of at most MaxBatchSize parents. Chunk boundaries align
// to whole preimage tuples, so no hash computation is ever split across
// calls, and outputs land directly in the next row's region.
func (t *TreeBuilder) buildRowsBatched(
	data []*big.Int,
	intermediateSize int,
) error {
	maxBatchSize := t.batcher.MaxBatchSize()

	rowStart, rowEnd := 0, t.leafCount
	for rowEnd < intermediateSize {
		rowSize := rowEnd - rowStart
		newRowSize := rowSize / t.arity
		newRowStart, newRowEnd := rowEnd, rowEnd+newRowSize

		totalHashed := 0
		batchStart := rowStart
		for totalHashed < newRowSize {
			batchEnd := min(batchStart+maxBatchSize*t.arity, rowEnd)
			batchSize := (batchEnd - batchStart) / t.arity

			out := data[newRowStart+totalHashed : newRowStart+totalHashed+batchSize]
			if err := t.batcher.HashInto(out, data[batchStart:batchEnd]); err != nil {
				return err
			}

			totalHashed += batchSize
			batchStart = batchEnd
		}

		rowStart = newRowStart
		rowEnd = newRowEnd
	}

	return nil
}

// ComputeUniformTreeRoot returns the root of a hypothetical tree whose
// leaves all equal leaf, in time proportional to the height rather than the
// leaf count. Each row of such a tree is the hash of identical elements in
// the previous row.
func (t *TreeBuilder) ComputeUniformTreeRoot(leaf *big.Int) (*big.Int, error) {
	element := new(big.Int).Set(leaf)
	preimage := make([]*big.Int, t.arity)

	for i := 0; i < t.treeHeight; i++ {
		for j := range preimage {
			preimage[j] = element
		}

		digest, err := t.engine.Hash(preimage)
		if err != nil {
			buildOperationsTotal.WithLabelValues("uniform_root", "error").Inc()
			return nil, errors.Wrap(err, "compute uniform tree root")
		}
		element = digest
	}

	buildOperationsTotal.WithLabelValues("uniform_root", "success").Inc()

	// The last element computed is the root.
	return element, nil
}

// TreeSize returns the retained node count for the given discard count with
// this builder's shape.
func (t *TreeBuilder) TreeSize(rowsToDiscard int) (int, error) {
	treeSize, err := TreeSize(t.leafCount, t.arity, rowsToDiscard)
	return treeSize, errors.Wrap(err, "tree size")
}

// TreeHeight returns the tree depth above the leaf row.
func (t *TreeBuilder) TreeHeight() int {
	return t.treeHeight
}

// LeafCount returns the leaf capacity of one build.
func (t *TreeBuilder) LeafCount() int {
	return t.leafCount
}

func copyRow(row []*big.Int) []*big.Int {
	out := make([]*big.Int, len(row))
	for i, element := range row {
		out[i] = new(big.Int).Set(element)
	}
	return out
}
