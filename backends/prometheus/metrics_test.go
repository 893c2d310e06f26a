package prometheus

import (
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestReflection(t *testing.T) {
	x := newMetrics()

	v := reflect.ValueOf(*x)

	for i := 0; i < v.NumField(); i++ {
		vv := v.Field(i).Interface()
		if _, ok := vv.(prometheus.Collector); !ok {
			t.Errorf("error casting the interface for %d", i)
		}
		if _, ok := vv.(*prometheus.GaugeVec); !ok {
			t.Errorf("field %d won't be reset", i)
		}
	}
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()

	if err := newMetrics().register(reg); err != nil {
		t.Fatalf("error registering the metrics: %v", err)
	}

	// Same names twice must be refused.
	if err := newMetrics().register(reg); err == nil {
		t.Errorf("registering duplicate collectors succeeded")
	}
}
