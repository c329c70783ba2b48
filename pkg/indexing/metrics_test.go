package indexing_test

import (
	"testing"

	"github.com/adfharrison1/go-tickindex/pkg/domain"
	"github.com/adfharrison1/go-tickindex/pkg/indexing"
	"github.com/adfharrison1/go-tickindex/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := indexing.NewMetrics()

	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg), "collectors are already registered")
}

func TestMetrics_RecordRefreshes(t *testing.T) {
	m := indexing.NewMetrics()
	world := storage.NewWorld()
	numbers := storage.TableOf[Number](world)
	for _, v := range []Number{10, 10, 20} {
		require.NoError(t, numbers.Insert(world.Spawn(), v))
	}
	reg := indexing.NewRegistry(indexing.WithMetrics(m))
	def := domain.Func("numbers", func(n Number) Number { return n })

	world.Advance()
	indexing.Open(reg, def, numbers.View()).Lookup(10)
	indexing.Open(reg, def, numbers.View()).Lookup(20)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes.WithLabelValues("numbers", "scanned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes.WithLabelValues("numbers", "skipped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Scanned.WithLabelValues("numbers")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Reindexed.WithLabelValues("numbers")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Watermark.WithLabelValues("numbers")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Entries.WithLabelValues("numbers")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RefreshDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	world := storage.NewWorld()
	numbers := storage.TableOf[Number](world)
	require.NoError(t, numbers.Insert(world.Spawn(), 1))

	idx := indexing.Open(indexing.NewRegistry(), numberIndex{}, numbers.View())
	assert.NotPanics(t, func() {
		idx.Refresh()
		idx.Refresh()
	})
}
