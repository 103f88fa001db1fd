package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBatch(t *testing.T) {
	before := testutil.ToFloat64(BatchesTrained.WithLabelValues("bayes", "init"))
	ObserveBatch("bayes", true, time.Now())
	assert.Equal(t, before+1, testutil.ToFloat64(BatchesTrained.WithLabelValues("bayes", "init")))
}

func TestObserveVerdict(t *testing.T) {
	before := testutil.ToFloat64(Verdicts.WithLabelValues("neural", "spam"))
	ObserveVerdict("neural", true)
	assert.Equal(t, before+1, testutil.ToFloat64(Verdicts.WithLabelValues("neural", "spam")))
}

func TestRegistryGathers(t *testing.T) {
	MessagesProcessed.WithLabelValues("bayes").Add(3)

	families, err := Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["spamfilter_messages_processed_total"])
	assert.NoError(t, RegisterPool("nil", nil))
}
