package metrics

import (
	"reflect"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is the prefix for all stash prometheus metrics.
const Namespace = "stash"

// Collector is implemented by services that expose prometheus metrics.
type Collector interface {
	Metrics() []prometheus.Collector
}

// PrometheusCollectorsFromFields returns all prometheus.Collector fields
// of the provided struct value. It is used by services to expose their
// metrics struct fields without enumerating them by hand.
func PrometheusCollectorsFromFields(i interface{}) (collectors []prometheus.Collector) {
	v := reflect.Indirect(reflect.ValueOf(i))
	for i, n := 0, v.NumField(); i < n; i++ {
		f := v.Field(i)
		if !f.CanInterface() {
			continue
		}
		if u, ok := f.Interface().(prometheus.Collector); ok {
			collectors = append(collectors, u)
		}
	}
	return collectors
}
