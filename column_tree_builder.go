package neptune

import (
	"math/big"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/linguohua/neptune/types"
)

// ColumnTreeBuilder collapses fixed-size columns of field elements into leaf
// values and builds a tree over them, sharing one buffer across both stages:
// the column stage writes leaves into the first leafCount slots, and the
// embedded TreeBuilder treats exactly that region as its leaf row. No second
// allocation is made and nothing is copied at the handoff.
type ColumnTreeBuilder struct {
	logger        *zap.Logger
	columnBatcher types.BatchHasher
	columnEngine  types.HashEngine
	treeBuilder   *TreeBuilder
	leafCount     int
	columnArity   int
	// Index of the first unfilled datum.
	fillIndex int
	data      []*big.Int
}

// NewColumnTreeBuilder wires the column stage around an embedded TreeBuilder
// constructed over the same buffer with a discard count of zero. Engines fix
// the per-stage arities; batchers are optional per stage and should come
// from one shared backend session when both stages are accelerated.
func NewColumnTreeBuilder(
	logger *zap.Logger,
	columnBatcher types.BatchHasher,
	treeBatcher types.BatchHasher,
	columnEngine types.HashEngine,
	treeEngine types.HashEngine,
	leafCount int,
	data []*big.Int,
) (*ColumnTreeBuilder, error) {
	if columnEngine == nil {
		return nil, errors.Wrap(
			errors.New("missing column hash engine"),
			"new column tree builder",
		)
	}

	columnArity := columnEngine.Arity()
	if columnBatcher != nil && columnBatcher.Arity() != columnArity {
		return nil, errors.Wrap(
			errors.Errorf(
				"column batcher arity %d does not match column engine arity %d",
				columnBatcher.Arity(),
				columnArity,
			),
			"new column tree builder",
		)
	}

	// A non-advancing batch bound would stall the column chunk loop.
	if columnBatcher != nil && columnBatcher.MaxBatchSize() < 1 {
		return nil, errors.Wrap(
			errors.Errorf(
				"column batcher max batch size %d must be positive",
				columnBatcher.MaxBatchSize(),
			),
			"new column tree builder",
		)
	}

	if treeEngine == nil {
		return nil, errors.Wrap(
			errors.New("missing tree hash engine"),
			"new column tree builder",
		)
	}

	if data == nil {
		intermediateSize, err := IntermediateSize(leafCount, treeEngine.Arity())
		if err != nil {
			return nil, errors.Wrap(err, "new column tree builder")
		}
		data = make([]*big.Int, intermediateSize)
	}

	treeBuilder, err := NewTreeBuilder(
		logger,
		treeBatcher,
		treeEngine,
		leafCount,
		0,
		data,
	)
	if err != nil {
		return nil, errors.Wrap(err, "new column tree builder")
	}

	logger.Info(
		"new column tree builder",
		zap.Int("buffer_len", len(data)),
		zap.Int("leaf_count", leafCount),
		zap.Int("column_arity", columnArity),
	)

	return &ColumnTreeBuilder{
		logger:        logger,
		columnBatcher: columnBatcher,
		columnEngine:  columnEngine,
		treeBuilder:   treeBuilder,
		leafCount:     leafCount,
		columnArity:   columnArity,
		fillIndex:     0,
		data:          data,
	}, nil
}

// AddColumns collapses each columnArity-sized tuple of the flat columns
// slice to one leaf value at the fill cursor. Columns that would exceed the
// leaf capacity fail with ErrTooManyColumns before any hashing happens.
func (c *ColumnTreeBuilder) AddColumns(columns []*big.Int) error {
	if len(columns)%c.columnArity != 0 {
		buildOperationsTotal.WithLabelValues("add_columns", "error").Inc()
		return errors.Wrap(
			errors.Errorf(
				"column data length %d is not a multiple of column arity %d",
				len(columns),
				c.columnArity,
			),
			"add columns",
		)
	}

	start := c.fillIndex
	columnCount := len(columns) / c.columnArity
	end := start + columnCount

	if end > c.leafCount {
		buildOperationsTotal.WithLabelValues("add_columns", "error").Inc()
		return errors.Wrap(ErrTooManyColumns, "add columns")
	}

	if c.columnBatcher != nil {
		// Submit in chunks of whole columns so one call never exceeds the
		// backend's batch bound.
		maxBatchSize := c.columnBatcher.MaxBatchSize()
		for hashed := 0; hashed < columnCount; {
			batchSize := min(maxBatchSize, columnCount-hashed)
			inStart := hashed * c.columnArity
			inEnd := (hashed + batchSize) * c.columnArity

			err := c.columnBatcher.HashInto(
				c.data[start+hashed:start+hashed+batchSize],
				columns[inStart:inEnd],
			)
			if err != nil {
				buildOperationsTotal.WithLabelValues("add_columns", "error").Inc()
				return errors.Wrap(err, "add columns")
			}

			hashed += batchSize
		}
	} else {
		for i := 0; i < columnCount; i++ {
			digest, err := c.columnEngine.Hash(
				columns[i*c.columnArity : (i+1)*c.columnArity],
			)
			if err != nil {
				buildOperationsTotal.WithLabelValues("add_columns", "error").Inc()
				return errors.Wrap(err, "add columns")
			}
			c.data[start+i] = digest
		}
	}

	c.fillIndex = end

	buildOperationsTotal.WithLabelValues("add_columns", "success").Inc()
	return nil
}

// AddFinalColumns appends the final columns, hands the shared buffer to the
// embedded TreeBuilder at the current fill count, and returns the leaf row
// and the retained upper rows, root last. The column cursor is reset whether
// or not the build succeeds.
func (c *ColumnTreeBuilder) AddFinalColumns(columns []*big.Int) (
	[]*big.Int,
	[]*big.Int,
	error,
) {
	if err := c.AddColumns(columns); err != nil {
		return nil, nil, errors.Wrap(err, "add final columns")
	}

	baseRow, treeToKeep, err := c.treeBuilder.buildTree(c.data, c.fillIndex)
	c.Reset()
	if err != nil {
		return nil, nil, errors.Wrap(err, "add final columns")
	}

	return baseRow, treeToKeep, nil
}

// Reset zeroes the column fill cursor so the builder can be reused for an
// independent tree of the same shape.
func (c *ColumnTreeBuilder) Reset() {
	c.fillIndex = 0
}

// ComputeUniformTreeRoot returns the root of a tree whose columns are all
// identical: the column hashes once, then the embedded builder's uniform
// shortcut climbs to the root.
func (c *ColumnTreeBuilder) ComputeUniformTreeRoot(column []*big.Int) (
	*big.Int,
	error,
) {
	if len(column) != c.columnArity {
		return nil, errors.Wrap(
			errors.Errorf(
				"column length %d does not match column arity %d",
				len(column),
				c.columnArity,
			),
			"compute uniform tree root",
		)
	}

	// All the leaves will be the same.
	leaf, err := c.columnEngine.Hash(column)
	if err != nil {
		return nil, errors.Wrap(err, "compute uniform tree root")
	}

	root, err := c.treeBuilder.ComputeUniformTreeRoot(leaf)
	return root, errors.Wrap(err, "compute uniform tree root")
}

// TreeSize returns the retained node count of the composed tree; the
// composition's own accounting always keeps every row above the leaves.
func (c *ColumnTreeBuilder) TreeSize() (int, error) {
	return c.treeBuilder.TreeSize(0)
}
