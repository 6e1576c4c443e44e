package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPaymentMetricsExportCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPaymentMetrics(reg)

	metrics.IncInitiation("mtn_momo", "success")
	metrics.IncConfirmation("webhook", "paid")
	metrics.IncFulfillment("complete")
	metrics.ObserveVerifyDuration("success", 150*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "payment_initiations_total", "method", "mtn_momo"); err != nil {
		t.Fatalf("fetch initiations: %v", err)
	} else if got != 1 {
		t.Fatalf("expected initiations=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "payment_confirmations_total", "source", "webhook"); err != nil {
		t.Fatalf("fetch confirmations: %v", err)
	} else if got != 1 {
		t.Fatalf("expected confirmations=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "order_fulfillments_total", "outcome", "complete"); err != nil {
		t.Fatalf("fetch fulfillments: %v", err)
	} else if got != 1 {
		t.Fatalf("expected fulfillments=1, got %f", got)
	}
}

func TestPaymentMetricsNilReceiverIsSafe(t *testing.T) {
	var metrics *PaymentMetrics
	metrics.IncInitiation("card", "success")
	metrics.IncConfirmation("poll", "pending")
	metrics.IncFulfillment("partial")
	metrics.ObserveVerifyDuration("error", time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric family %s not found", name)
	}
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == label && lp.GetValue() == value {
				return m.GetCounter().GetValue(), nil
			}
		}
	}
	return 0, fmt.Errorf("no metric with %s=%s", label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
