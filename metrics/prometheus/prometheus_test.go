package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/sandrolain/cachegate/metrics"
)

func TestNewCollector_ImplementsInterface(t *testing.T) {
	var _ metrics.Collector = (*Collector)(nil)
}

func TestNewCollectorWithRegistry_Isolated(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWithRegistry(reg)

	c.RecordRequest("GET", "fresh", 200, 10*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	if !hasMetric(families, "cachegate_requests_total") {
		t.Error("expected cachegate_requests_total to be registered")
	}
}

func TestCollector_RecordCacheOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWithRegistry(reg)

	c.RecordCacheOperation("lookup", "heap", "hit", 5*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	if !hasMetric(families, "cachegate_store_operations_total") {
		t.Error("expected cachegate_store_operations_total to be registered")
	}
}

func TestCollector_RecordEntrySize(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWithRegistry(reg)

	c.RecordEntrySize("heap", 2048)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	if !hasMetric(families, "cachegate_entry_size_bytes") {
		t.Error("expected cachegate_entry_size_bytes to be registered")
	}
}

func TestCollector_RecordStaleServed(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWithRegistry(reg)

	c.RecordStaleServed("swr")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	if !hasMetric(families, "cachegate_stale_served_total") {
		t.Error("expected cachegate_stale_served_total to be registered")
	}
}

func TestNewCollectorWithConfig_CustomNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWithConfig(Config{Registry: reg, Namespace: "custom", Subsystem: "sub"})
	c.RecordRequest("GET", "miss", 200, 0)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	if !hasMetric(families, "custom_sub_requests_total") {
		t.Error("expected namespace/subsystem to be applied to the metric name")
	}
}

func hasMetric(families []*dto.MetricFamily, name string) bool {
	for _, f := range families {
		if f.GetName() == name {
			return true
		}
	}
	return false
}
