package metrics

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager 持有命名空间与 registry，所有指标都以 namespace_system_name 命名
type Manager struct {
	namespace string
	system    string
	registry  *prometheus.Registry
}

var (
	defaultManager = &Manager{namespace: "default", system: "default", registry: prometheus.NewRegistry()}
	defaultLocker  sync.RWMutex
)

func NewManager(ns, system string, registry *prometheus.Registry) *Manager {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Manager{namespace: ns, system: system, registry: registry}
}

// SetupMetricsManager 替换默认 manager 并注册 go runtime 指标
func SetupMetricsManager(ns, system string, registry *prometheus.Registry) *Manager {
	m := NewManager(ns, system, registry)
	_ = m.registry.Register(collectors.NewGoCollector())

	defaultLocker.Lock()
	defaultManager = m
	defaultLocker.Unlock()
	return m
}

func Default() *Manager {
	defaultLocker.RLock()
	defer defaultLocker.RUnlock()
	return defaultManager
}

func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// register 重复注册时返回已存在的 collector，保证同一进程内多次构造不会 panic
func register[T prometheus.Collector](m *Manager, c T) T {
	if err := m.registry.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if exist, ok := are.ExistingCollector.(T); ok {
				return exist
			}
		}
	}
	return c
}

func (m *Manager) NewCounterVec(name string, labels []string) *prometheus.CounterVec {
	return register(m, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: FmtFixer(m.namespace),
			Subsystem: FmtFixer(m.system),
			Name:      FmtFixer(name),
			Help:      fmt.Sprintf("%s count of /%s/%s", name, m.namespace, m.system),
		},
		labels,
	))
}

// NewHistogramVec buckets 为空时使用 prometheus 默认分桶(秒)
func (m *Manager) NewHistogramVec(name string, labels []string, buckets ...float64) *prometheus.HistogramVec {
	return register(m, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: FmtFixer(m.namespace),
			Subsystem: FmtFixer(m.system),
			Name:      FmtFixer(name),
			Help:      fmt.Sprintf("%s duration of /%s/%s", name, m.namespace, m.system),
			Buckets:   buckets,
		},
		labels,
	))
}

func (m *Manager) NewGaugeVec(name string, labels []string) *prometheus.GaugeVec {
	return register(m, prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: FmtFixer(m.namespace),
			Subsystem: FmtFixer(m.system),
			Name:      FmtFixer(name),
			Help:      fmt.Sprintf("%s gauge of /%s/%s", name, m.namespace, m.system),
		},
		labels,
	))
}

func (m *Manager) ExportHandler() gin.HandlerFunc {
	h := promhttp.InstrumentMetricHandler(m.registry, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func DefaultExportHandler() gin.HandlerFunc {
	return Default().ExportHandler()
}

func FmtFixer(in string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(in)
}
