package metrics

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"fxrisk/logger"
)

func quietLogger() *logger.Log {
	log := logger.Logger()
	log.SetOutput(&bytes.Buffer{})
	return log
}

func TestRegisterHandlerReturnsUniqueIDs(t *testing.T) {
	id := RegisterHandler(func(Event) {})
	second := RegisterHandler(func(Event) {})
	t.Cleanup(func() {
		UnregisterHandler(id)
		UnregisterHandler(second)
	})

	if id == 0 || second == 0 || id == second {
		t.Fatalf("expected distinct non-zero ids, got %d and %d", id, second)
	}
	if RegisterHandler(nil) != 0 {
		t.Fatal("expected zero id for nil handler")
	}
}

func TestEmitDispatchesCopy(t *testing.T) {
	events := make(chan Event, 1)
	id := RegisterHandler(func(e Event) { events <- e })
	t.Cleanup(func() { UnregisterHandler(id) })

	fields := logger.Fields{"run_id": "r1"}
	Emit(quietLogger(), "risk", "RowsUnpriced", 2, "", fields)

	select {
	case e := <-events:
		if e.Component != "risk" || e.Name != "RowsUnpriced" || e.Value != 2 {
			t.Fatalf("unexpected event: %+v", e)
		}
		if e.Type != "counter" {
			t.Fatalf("expected default type counter, got %s", e.Type)
		}
		if _, ok := e.Fields["metric"]; ok {
			t.Fatalf("event fields should not carry log keys: %v", e.Fields)
		}
	case <-time.After(50 * time.Millisecond):
		t.Fatal("handler not invoked")
	}
	if _, ok := fields["metric"]; ok {
		t.Fatalf("caller fields mutated: %v", fields)
	}
}

func TestEmitWithoutName(t *testing.T) {
	events := make(chan Event, 1)
	id := RegisterHandler(func(e Event) { events <- e })
	t.Cleanup(func() { UnregisterHandler(id) })

	Emit(quietLogger(), "risk", "", 1, "gauge", nil)
	select {
	case <-events:
		t.Fatal("nameless events must be dropped")
	default:
	}
}

func TestEmitSnapshotSetsGauges(t *testing.T) {
	EmitSnapshot(quietLogger(), SnapshotStats{RunID: "r2", Reason: "deadline", Symbols: 5, Received: 3, Missing: 2, Quotes: 3})

	if got := testutil.ToFloat64(symbols.WithLabelValues("received")); got != 3 {
		t.Fatalf("received gauge = %v", got)
	}
	if got := testutil.ToFloat64(symbols.WithLabelValues("missing")); got != 2 {
		t.Fatalf("missing gauge = %v", got)
	}
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(streamMessages.WithLabelValues("FEED_DATA"))
	ObserveMessage("FEED_DATA")
	if got := testutil.ToFloat64(streamMessages.WithLabelValues("FEED_DATA")); got != before+1 {
		t.Fatalf("messages counter = %v, want %v", got, before+1)
	}

	beforeQuotes := testutil.ToFloat64(quotesDecoded)
	AddQuotes(4)
	AddQuotes(-1)
	if got := testutil.ToFloat64(quotesDecoded); got != beforeQuotes+4 {
		t.Fatalf("quotes counter = %v", got)
	}
}

func TestInitWithoutAddress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	Init(ctx, "")
	if _, err := Registry().Gather(); err != nil {
		t.Fatalf("gather: %v", err)
	}
}
