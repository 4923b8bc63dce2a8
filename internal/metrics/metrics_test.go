package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.LeadsCreated.WithLabelValues("HOT").Inc()
	m.RemindersSent.WithLabelValues("first").Add(2)
	m.DeliveryFailures.WithLabelValues("email").Inc()
	m.ActiveSessions.Set(3)
	m.EscalationPassSeconds.Observe(0.1)
	m.EscalationLockSkips.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 6)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LeadsCreated.WithLabelValues("HOT")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RemindersSent.WithLabelValues("first")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ActiveSessions))
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestDiscard_Independent(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard()
		Discard()
	})
}
