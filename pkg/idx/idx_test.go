package idx_test

import (
	"sync"
	"testing"
	"time"

	"github.com/opencustody/strongroom/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewProducesValidSortableIDs(t *testing.T) {
	t.Parallel()

	a := idx.New()
	b := idx.New()

	_, err := idx.Parse(a.String())
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.LessOrEqual(t, a.String(), b.String(), "same-process IDs must be monotonic")
	require.WithinDuration(t, time.Now(), a.Time(), time.Minute)
}

func TestParseRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "   ", "not-a-ulid", "01ARZ3NDEKTSV4RRFFQ69G5FA"} {
		_, err := idx.Parse(s)
		require.ErrorIs(t, err, idx.ErrInvalid, "input %q", s)
	}
}

func TestNewIsSafeForConcurrentUse(t *testing.T) {
	t.Parallel()

	const n = 100
	seen := sync.Map{}
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen.Store(idx.New(), struct{}{})
		}()
	}
	wg.Wait()

	count := 0
	seen.Range(func(any, any) bool { count++; return true })
	require.Equal(t, n, count)
}
