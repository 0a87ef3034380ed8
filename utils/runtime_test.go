package utils_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linguohua/neptune/utils"
)

func TestWorkerCount(t *testing.T) {
	cores := runtime.GOMAXPROCS(0)

	// A request is honored up to the core count.
	assert.Equal(t, 1, utils.WorkerCount(1))
	assert.Equal(t, cores, utils.WorkerCount(cores+4))

	// Unset leaves one core free for feeding the next batch.
	derived := utils.WorkerCount(0)
	if cores == 1 {
		assert.Equal(t, 1, derived)
	} else {
		assert.Equal(t, cores-1, derived)
	}

	assert.Equal(t, derived, utils.WorkerCount(-3))
}
