package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRegistersAndRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewCollectorWith(reg)

	collector.RecordAPIRequest("list_devices", "ok", 120*time.Millisecond)
	collector.RecordPollCycle("ok", time.Second)
	collector.SetDevicesTracked(3)
	collector.RecordCommand("brightness", "ok")
	collector.SetActiveOverrides(2)
	collector.RecordDiscrepancies(1)
	collector.SetWebSocketClients(4)
	collector.RecordHTTPRequest("GET", "/api/v1/devices", 200, 5*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}

	for _, want := range []string{
		"govee_api_requests_total",
		"govee_poll_cycles_total",
		"govee_devices_tracked",
		"govee_commands_total",
		"govee_overrides_active",
		"govee_reconciliation_discrepancies_total",
		"govee_websocket_clients",
		"govee_http_requests_total",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}

func TestCollectorsDoNotCollideAcrossRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollectorWith(prometheus.NewRegistry())
		NewCollectorWith(prometheus.NewRegistry())
	})
}
