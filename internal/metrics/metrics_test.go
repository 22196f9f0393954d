package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/netcollect/internal/rrd"
	"github.com/HerbHall/netcollect/pkg/collection"
)

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err, "second registration on the same registry must fail")
}

func TestObserveNormalize_FromAttributes(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	counter := collection.NewAttributeType("octets", "counter", "")
	gauge := collection.NewAttributeType("load", "gauge", "")
	res := collection.Resource{ID: "r1"}

	for _, raw := range []string{"1", "2 kB", "n/a"} {
		collection.NewAttribute(res, counter, raw, collection.WithObserver(m.ObserveNormalize)).NumericValue()
	}
	collection.NewAttribute(res, gauge, "", collection.WithObserver(m.ObserveNormalize)).NumericValue()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.normalized.WithLabelValues("counter", "parsed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.normalized.WithLabelValues("counter", "recovered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.normalized.WithLabelValues("counter", "unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.normalized.WithLabelValues("gauge", "unknown")))
}

func TestObservePersist(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObservePersist(rrd.Result{Written: 3, Unknown: 1, Skipped: 2})
	m.ObservePersist(rrd.Result{Written: 1, Rejected: 1})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cycles))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.persisted.WithLabelValues("written")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.persisted.WithLabelValues("unknown")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.persisted.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.persisted.WithLabelValues("rejected")))
}
