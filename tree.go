package neptune

import "github.com/pkg/errors"

// TreeHeight returns the number of divide-by-arity steps from leafCount down
// to the one-element root row. It is zero for the degenerate single-leaf
// tree. A leaf count that is not a power of the arity is a programmer error
// and is reported so it can be caught at development time.
func TreeHeight(leafCount int, arity int) (int, error) {
	if leafCount < 1 {
		return 0, errors.Wrap(
			errors.Errorf("leaf count %d must be positive", leafCount),
			"tree height",
		)
	}

	if arity < 2 {
		return 0, errors.Wrap(
			errors.Errorf("arity %d must be at least 2", arity),
			"tree height",
		)
	}

	treeHeight := 0
	currentRowSize := leafCount
	for currentRowSize >= 1 {
		if currentRowSize != 1 {
			treeHeight++
			if currentRowSize%arity != 0 {
				return 0, errors.Wrap(
					errors.Errorf(
						"leaf count %d is not a power of arity %d",
						leafCount,
						arity,
					),
					"tree height",
				)
			}
		}
		currentRowSize /= arity
	}

	return treeHeight, nil
}

// TreeSize returns the number of nodes in the tree to keep. This excludes
// the base row, along with the rows to be discarded above it; the root row
// is the last row counted.
func TreeSize(leafCount int, arity int, rowsToDiscard int) (int, error) {
	treeHeight, err := TreeHeight(leafCount, arity)
	if err != nil {
		return 0, errors.Wrap(err, "tree size")
	}

	if rowsToDiscard < 0 || rowsToDiscard > treeHeight {
		return 0, errors.Wrap(
			errors.Errorf(
				"rows to discard %d out of range for tree height %d",
				rowsToDiscard,
				treeHeight,
			),
			"tree size",
		)
	}

	treeSize := 0
	currentRowSize := leafCount

	// Exclude the base row, along with the rows to be discarded.
	remainingRowsToExclude := rowsToDiscard + 1

	for currentRowSize >= 1 {
		if remainingRowsToExclude > 0 {
			remainingRowsToExclude--
		} else {
			treeSize += currentRowSize
		}
		currentRowSize /= arity
	}

	return treeSize, nil
}

// IntermediateSize returns the backing buffer length a full build needs: the
// leaf row plus every computed row up to and including the root.
func IntermediateSize(leafCount int, arity int) (int, error) {
	treeSize, err := TreeSize(leafCount, arity, 0)
	if err != nil {
		return 0, errors.Wrap(err, "intermediate size")
	}

	return leafCount + treeSize, nil
}
