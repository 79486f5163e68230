package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelizeCoversEveryItemOnce(t *testing.T) {
	for _, items := range []int{0, 1, 7, 100, 1001} {
		seen := make([]int32, items)
		Parallelize(items, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, c := range seen {
			assert.Equal(t, int32(1), c, "items=%d index=%d", items, i)
		}
	}
}

func TestParallelizeNSingleWorker(t *testing.T) {
	calls := 0
	ParallelizeN(10, 0, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, 1, calls)
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	var ranges [][2]int
	ParallelizeWithThreshold(5, 10, func(start, end int) {
		ranges = append(ranges, [2]int{start, end})
	})
	assert.Equal(t, [][2]int{{0, 5}}, ranges)
}

func TestMapKeepsOrder(t *testing.T) {
	got := Map(50, 0, func(i int) int { return i * i })
	for i, v := range got {
		assert.Equal(t, i*i, v)
	}
}
