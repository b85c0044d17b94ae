package metrics

import (
	"sync"
	"time"

	"fxrisk/logger"
)

// Event is a structured metric emitted at the end of a pipeline stage. Events
// are logged, published to CloudWatch when it is initialised and handed to
// every registered handler.
type Event struct {
	Timestamp time.Time
	Component string
	Name      string
	Value     float64
	Type      string
	Fields    logger.Fields
}

type EventHandler func(Event)

type HandlerID uint64

var (
	handlersMu    sync.RWMutex
	handlers      = make(map[HandlerID]EventHandler)
	nextHandlerID HandlerID
)

// RegisterHandler subscribes handler to every emitted event. A nil handler
// yields the zero id.
func RegisterHandler(handler EventHandler) HandlerID {
	if handler == nil {
		return 0
	}

	handlersMu.Lock()
	defer handlersMu.Unlock()

	nextHandlerID++
	handlers[nextHandlerID] = handler
	return nextHandlerID
}

func UnregisterHandler(id HandlerID) {
	if id == 0 {
		return
	}
	handlersMu.Lock()
	delete(handlers, id)
	handlersMu.Unlock()
}

// Emit logs the event through log (the global logger when nil) and
// dispatches it. Events without a name are dropped.
func Emit(log *logger.Log, component, name string, value float64, metricType string, fields logger.Fields) {
	if name == "" {
		return
	}
	if metricType == "" {
		metricType = "counter"
	}
	if log == nil {
		log = logger.GetLogger()
	}

	userFields := make(logger.Fields, len(fields))
	logFields := make(logger.Fields, len(fields))
	for k, v := range fields {
		userFields[k] = v
		logFields[k] = v
	}
	log.LogMetric(component, name, value, metricType, logFields)

	event := Event{
		Timestamp: time.Now(),
		Component: component,
		Name:      name,
		Value:     value,
		Type:      metricType,
		Fields:    userFields,
	}

	handlersMu.RLock()
	snapshot := make([]EventHandler, 0, len(handlers))
	for _, h := range handlers {
		snapshot = append(snapshot, h)
	}
	handlersMu.RUnlock()

	for _, h := range snapshot {
		h(event)
	}
}

// SnapshotStats summarises one dxLink snapshot.
type SnapshotStats struct {
	RunID    string
	Reason   string
	Symbols  int
	Received int
	Missing  int
	Quotes   int
	Duration time.Duration
}

// EmitSnapshot updates the prometheus gauges and emits the snapshot events
// plotted on the CloudWatch dashboard.
func EmitSnapshot(log *logger.Log, stats SnapshotStats) {
	SetSymbols(stats.Received, stats.Missing)
	fields := logger.Fields{"run_id": stats.RunID, "reason": stats.Reason}
	Emit(log, "dxlink", "SymbolsReceived", float64(stats.Received), "gauge", fields)
	Emit(log, "dxlink", "SymbolsMissing", float64(stats.Missing), "gauge", fields)
	Emit(log, "dxlink", "SnapshotSeconds", stats.Duration.Seconds(), "gauge", fields)
}

// RiskStats summarises one risk computation pass.
type RiskStats struct {
	RunID      string
	Rows       int
	Unpriced   int
	Currencies int
}

func EmitRisk(log *logger.Log, stats RiskStats) {
	SetRiskRows(stats.Rows-stats.Unpriced, stats.Unpriced)
	fields := logger.Fields{"run_id": stats.RunID}
	Emit(log, "risk", "RowsUnpriced", float64(stats.Unpriced), "gauge", fields)
	Emit(log, "risk", "Currencies", float64(stats.Currencies), "gauge", fields)
}
