// Registers:
//
//	#fxrisk_dxlink_messages_total{type}
//	#fxrisk_dxlink_protocol_errors_total{kind}
//	#fxrisk_quotes_decoded_total
//	#fxrisk_symbols{status}
//	#fxrisk_risk_rows{status}
//	#fxrisk_runs_total{job,outcome}
//	#go_* and process_* system metrics
//
// Exposes them on the configured listen address under /metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fxrisk/logger"
)

var (
	once     sync.Once
	registry = prometheus.NewRegistry()

	streamMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxrisk_dxlink_messages_total",
			Help: "dxLink messages received, by message type",
		},
		[]string{"type"},
	)
	protocolErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxrisk_dxlink_protocol_errors_total",
			Help: "dxLink messages that were malformed, unexpected or reported as ERROR",
		},
		[]string{"kind"},
	)
	quotesDecoded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fxrisk_quotes_decoded_total",
		Help: "Quote records decoded from FEED_DATA batches",
	})
	symbols = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fxrisk_symbols",
			Help: "Subscribed symbols at the end of the last snapshot, by status",
		},
		[]string{"status"},
	)
	riskRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fxrisk_risk_rows",
			Help: "Risk rows produced by the last run, by pricing status",
		},
		[]string{"status"},
	)
	runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fxrisk_runs_total",
			Help: "Job runs by outcome",
		},
		[]string{"job", "outcome"},
	)
)

func init() {
	registry.MustRegister(streamMessages, protocolErrors, quotesDecoded, symbols, riskRows, runs)
}

// Registry returns the registry holding every fxrisk collector.
func Registry() *prometheus.Registry {
	return registry
}

// Init registers the Go and process collectors and, when addr is not
// empty, serves /metrics on addr until ctx is done.
func Init(ctx context.Context, addr string) {
	once.Do(func() {
		_ = registry.Register(collectors.NewGoCollector())
		_ = registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		if addr == "" {
			return
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		log := logger.GetLogger().WithComponent("metrics")
		go func() {
			log.WithField("addr", addr).Info("serving prometheus metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("metrics server failed")
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	})
}

// ObserveMessage counts one inbound dxLink message of the given type.
func ObserveMessage(msgType string) {
	streamMessages.WithLabelValues(msgType).Inc()
}

// ProtocolError counts a malformed or out-of-sequence message.
func ProtocolError(kind string) {
	protocolErrors.WithLabelValues(kind).Inc()
}

func AddQuotes(n int) {
	if n > 0 {
		quotesDecoded.Add(float64(n))
	}
}

// SetSymbols records how many subscribed symbols were received and missing.
func SetSymbols(received, missing int) {
	symbols.WithLabelValues("received").Set(float64(received))
	symbols.WithLabelValues("missing").Set(float64(missing))
}

// SetRiskRows records how many rows were priced and how many were left
// without an implied volatility.
func SetRiskRows(priced, unpriced int) {
	riskRows.WithLabelValues("priced").Set(float64(priced))
	riskRows.WithLabelValues("unpriced").Set(float64(unpriced))
}

func ObserveRun(job, outcome string) {
	runs.WithLabelValues(job, outcome).Inc()
}
