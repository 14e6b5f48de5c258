//nolint:gochecknoglobals // prometheus metrics and global state
package metrics

import (
	"errors"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Refresh outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

var (
	DeviceRefreshesTotal = promauto.NewCounterVec(
		prom.CounterOpts{
			Name: "device_refreshes_total",
			Help: "Device refreshes by outcome (Counter). outcome=ok|empty|error.",
		},
		[]string{"service", "outcome"},
	)
	DeviceRefreshTriggersTotal = promauto.NewCounterVec(
		prom.CounterOpts{
			Name: "device_refresh_triggers_total",
			Help: "Automatic refresh triggers by reason (Counter). reason=startup|topology|permission.",
		},
		[]string{"service", "reason"},
	)
	DeviceRefreshDuration = promauto.NewHistogramVec(prom.HistogramOpts{
		Name:    "device_refresh_duration_seconds",
		Help:    "Duration of a device refresh including enumeration (Histogram).",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
	}, []string{"service"})
	DescriptorsDroppedTotal = promauto.NewCounterVec(
		prom.CounterOpts{
			Name: "device_descriptors_dropped_total",
			Help: "Raw descriptors rejected for missing an identifier (Counter).",
		},
		[]string{"service"},
	)
	CatalogDevices = promauto.NewGaugeVec(
		prom.GaugeOpts{
			Name: "device_catalog_devices",
			Help: "Devices currently in the catalog by role (Gauge). role=camera|microphone|speaker|all.",
		},
		[]string{"service", "role"},
	)
	KnownDevicesGauge = promauto.NewGaugeVec(
		prom.GaugeOpts{
			Name: "device_known",
			Help: "Whether the last refresh returned real devices: 1=yes, 0=no (Gauge).",
		},
		[]string{"service"},
	)
	PermissionTransitionsTotal = promauto.NewCounterVec(
		prom.CounterOpts{
			Name: "permission_transitions_total",
			Help: "Permission state transitions (Counter). Labels: capability, to.",
		},
		[]string{"service", "capability", "to"},
	)
	PermissionState = promauto.NewGaugeVec(
		prom.GaugeOpts{
			Name: "permission_state",
			Help: "Current permission state, 1 for the active state label (Gauge).",
		},
		[]string{"service", "capability", "state"},
	)
	AdminRequestsTotal = promauto.NewCounterVec(
		prom.CounterOpts{
			Name: "http_server_requests_total",
			Help: "Admin HTTP requests handled (Counter). Labels: service, method, route, status.",
		},
		[]string{"service", "method", "route", "status"},
	)
	ReadyGauge = promauto.NewGaugeVec(
		prom.GaugeOpts{
			Name: "service_ready",
			Help: "Service readiness: 1=ready, 0=not ready (Gauge).",
		},
		[]string{"service"},
	)
)

var permissionStates = []string{"unknown", "pending", "granted", "denied", "dismissed"}

var readyFlag int32 //nolint:gochecknoglobals // service ready flag

var serviceName atomic.Value //nolint:gochecknoglobals // service name // string

// SetService sets the service label value (default: avwatch).
func SetService(name string) { serviceName.Store(name) }

func Service() string {
	if v := serviceName.Load(); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}

	return "avwatch"
}

// RegisterCollectors registers default Go and process collectors.
// Should be called once during program startup (e.g., in cmd).
func RegisterCollectors() {
	registerDefault(collectors.NewGoCollector())
	registerDefault(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

func registerDefault(c prom.Collector) {
	if err := prom.Register(c); err != nil {
		var are prom.AlreadyRegisteredError
		if errors.As(err, &are) {
			return
		}
		// best-effort: ignore unexpected errors to avoid panics in init
	}
}

// RecordRefresh counts a finished refresh and observes its duration.
func RecordRefresh(outcome string, d time.Duration) {
	s := Service()
	DeviceRefreshesTotal.WithLabelValues(s, outcome).Inc()
	DeviceRefreshDuration.WithLabelValues(s).Observe(d.Seconds())
}

// IncRefreshTrigger counts an automatic refresh trigger.
func IncRefreshTrigger(reason string) {
	DeviceRefreshTriggersTotal.WithLabelValues(Service(), reason).Inc()
}

// AddDroppedDescriptors counts descriptors rejected during normalization.
func AddDroppedDescriptors(n int) {
	if n <= 0 {
		return
	}

	DescriptorsDroppedTotal.WithLabelValues(Service()).Add(float64(n))
}

// SetCatalogDevices publishes the catalog size for a role.
func SetCatalogDevices(role string, n int) {
	CatalogDevices.WithLabelValues(Service(), role).Set(float64(n))
}

// SetKnownDevices publishes the known-devices flag.
func SetKnownDevices(known bool) {
	v := 0.0
	if known {
		v = 1
	}

	KnownDevicesGauge.WithLabelValues(Service()).Set(v)
}

// RecordPermissionTransition counts a transition and updates the state gauge.
func RecordPermissionTransition(capability, to string) {
	s := Service()
	PermissionTransitionsTotal.WithLabelValues(s, capability, to).Inc()

	for _, st := range permissionStates {
		v := 0.0
		if st == to {
			v = 1
		}

		PermissionState.WithLabelValues(s, capability, st).Set(v)
	}
}

// ObserveAdminRequest counts an admin HTTP request.
func ObserveAdminRequest(method, route string, status int) {
	AdminRequestsTotal.WithLabelValues(Service(), method, route, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// SetReady sets readiness flag and gauge.
func SetReady(v bool) {
	if v {
		atomic.StoreInt32(&readyFlag, 1)
		ReadyGauge.WithLabelValues(Service()).Set(1)
	} else {
		atomic.StoreInt32(&readyFlag, 0)
		ReadyGauge.WithLabelValues(Service()).Set(0)
	}
}

// IsReady returns current readiness flag.
func IsReady() bool { return atomic.LoadInt32(&readyFlag) == 1 }

// Stats represents a lightweight analytics snapshot for the admin API.
type Stats struct {
	RefreshesTotal        float64            `json:"refreshes_total"`
	RefreshesByOutcome    map[string]float64 `json:"refreshes_by_outcome"`
	RefreshAvgSeconds     float64            `json:"refresh_avg_seconds"`
	DescriptorsDropped    float64            `json:"descriptors_dropped"`
	CatalogDevices        map[string]float64 `json:"catalog_devices"`
	KnownDevices          float64            `json:"known_devices"`
	PermissionTransitions float64            `json:"permission_transitions"`
	ServiceReady          float64            `json:"service_ready"`
}

// GatherStats collects basic stats from the default registry for a given service label.
func GatherStats(service string) (Stats, error) { //nolint:gocognit,cyclop,funlen
	mfs, err := prom.DefaultGatherer.Gather()
	if err != nil {
		return Stats{}, err
	}

	s := Stats{
		RefreshesByOutcome: map[string]float64{},
		CatalogDevices:     map[string]float64{},
	}

	var durSum, durCount float64

	withService := func(m *dto.Metric) bool {
		return labelValue(m, "service") == service
	}

	for _, mf := range mfs {
		switch mf.GetName() {
		case "device_refreshes_total":
			for _, m := range mf.GetMetric() {
				if withService(m) {
					v := m.GetCounter().GetValue()
					s.RefreshesTotal += v
					s.RefreshesByOutcome[labelValue(m, "outcome")] += v
				}
			}
		case "device_refresh_duration_seconds":
			for _, m := range mf.GetMetric() {
				if withService(m) {
					h := m.GetHistogram()
					durSum += h.GetSampleSum()
					durCount += float64(h.GetSampleCount())
				}
			}
		case "device_descriptors_dropped_total":
			for _, m := range mf.GetMetric() {
				if withService(m) {
					s.DescriptorsDropped += m.GetCounter().GetValue()
				}
			}
		case "device_catalog_devices":
			for _, m := range mf.GetMetric() {
				if withService(m) {
					s.CatalogDevices[labelValue(m, "role")] = m.GetGauge().GetValue()
				}
			}
		case "device_known":
			for _, m := range mf.GetMetric() {
				if withService(m) {
					s.KnownDevices = m.GetGauge().GetValue()
				}
			}
		case "permission_transitions_total":
			for _, m := range mf.GetMetric() {
				if withService(m) {
					s.PermissionTransitions += m.GetCounter().GetValue()
				}
			}
		case "service_ready":
			for _, m := range mf.GetMetric() {
				if withService(m) {
					s.ServiceReady = m.GetGauge().GetValue()
				}
			}
		}
	}

	if durCount > 0 {
		s.RefreshAvgSeconds = durSum / durCount
	}

	return s, nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}

	return ""
}
