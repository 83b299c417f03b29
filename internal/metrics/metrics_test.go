package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestEmailsTotal_CountsByLabel(t *testing.T) {
	before := testutil.ToFloat64(EmailsTotal.WithLabelValues("welcome", "sent"))
	EmailsTotal.WithLabelValues("welcome", "sent").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(EmailsTotal.WithLabelValues("welcome", "sent")))
}

func TestRegistry_GathersAppMetrics(t *testing.T) {
	AuthFailuresTotal.WithLabelValues("token").Inc()

	families, err := Registry.Gather()
	assert.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["concertlog_auth_failures_total"])
}
