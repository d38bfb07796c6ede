package scanning

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregator_SortsAndCounts(t *testing.T) {
	agg := NewAggregator(6)
	for _, r := range []Result{
		{Port: 443, Status: StatusOpen},
		{Port: 22, Status: StatusOpen},
		{Port: 8080, Status: StatusFiltered},
		{Port: 80, Status: StatusClosed},
		{Port: 21, Status: StatusClosed},
		{Port: 25, Status: StatusFiltered},
	} {
		require.True(t, agg.Record(r))
	}

	open, closed, filtered := agg.Counts()
	assert.Equal(t, 2, open)
	assert.Equal(t, 2, closed)
	assert.Equal(t, 2, filtered)

	t.Run("non-verbose keeps only open ports", func(t *testing.T) {
		got := agg.Results(false)
		require.Len(t, got, 2)
		assert.Equal(t, uint16(22), got[0].Port)
		assert.Equal(t, uint16(443), got[1].Port)
	})

	t.Run("verbose keeps every status", func(t *testing.T) {
		got := agg.Results(true)
		require.Len(t, got, 6)
		ports := make([]uint16, len(got))
		for i, r := range got {
			ports[i] = r.Port
		}
		assert.Equal(t, []uint16{21, 22, 25, 80, 443, 8080}, ports)
		assert.Equal(t, StatusFiltered, got[2].Status)
	})

	t.Run("filtered folds into closed outside verbose", func(t *testing.T) {
		assert.Equal(t, map[Status]int{StatusOpen: 2, StatusClosed: 4}, agg.StatusCounts(false))
		assert.Equal(t, map[Status]int{StatusOpen: 2, StatusClosed: 2, StatusFiltered: 2}, agg.StatusCounts(true))
	})
}

func TestAggregator_RejectsDuplicatePorts(t *testing.T) {
	agg := NewAggregator(1)
	assert.True(t, agg.Record(Result{Port: 22, Status: StatusOpen}))
	assert.False(t, agg.Record(Result{Port: 22, Status: StatusClosed}))
	got := agg.Results(true)
	require.Len(t, got, 1)
	assert.Equal(t, StatusOpen, got[0].Status)
}

func TestAggregator_ConcurrentRecord(t *testing.T) {
	const n = 1000
	ports := rand.Perm(n)
	agg := NewAggregator(n)

	var wg sync.WaitGroup
	for _, p := range ports {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := StatusClosed
			if p%10 == 0 {
				status = StatusOpen
			}
			agg.Record(Result{Port: uint16(p + 1), Status: status})
		}()
	}
	wg.Wait()

	got := agg.Results(true)
	require.Len(t, got, n)
	for i, r := range got {
		require.Equal(t, uint16(i+1), r.Port, fmt.Sprintf("position %d", i))
	}
	open, _, _ := agg.Counts()
	assert.Equal(t, n/10, open)
}
