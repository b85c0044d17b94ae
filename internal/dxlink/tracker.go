package dxlink

// Tracker records which of a fixed symbol set have produced at least one
// quote. It is owned by a single goroutine.
type Tracker struct {
	order    []string
	expected map[string]struct{}
	received map[string]struct{}
}

// NewTracker tracks the distinct, non-empty symbols in symbols.
func NewTracker(symbols []string) *Tracker {
	t := &Tracker{
		expected: make(map[string]struct{}, len(symbols)),
		received: make(map[string]struct{}, len(symbols)),
	}
	for _, s := range symbols {
		if s == "" {
			continue
		}
		if _, dup := t.expected[s]; dup {
			continue
		}
		t.expected[s] = struct{}{}
		t.order = append(t.order, s)
	}
	return t
}

// MarkReceived notes a quote for symbol. Symbols outside the set are
// ignored; it reports whether the symbol was newly received.
func (t *Tracker) MarkReceived(symbol string) bool {
	if _, ok := t.expected[symbol]; !ok {
		return false
	}
	if _, ok := t.received[symbol]; ok {
		return false
	}
	t.received[symbol] = struct{}{}
	return true
}

// IsComplete is true once every symbol has been received. An empty set is
// complete.
func (t *Tracker) IsComplete() bool {
	return len(t.received) == len(t.expected)
}

// Missing lists unreceived symbols in subscription order.
func (t *Tracker) Missing() []string {
	var out []string
	for _, s := range t.order {
		if _, ok := t.received[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

func (t *Tracker) Symbols() []string {
	return append([]string(nil), t.order...)
}

func (t *Tracker) Len() int {
	return len(t.order)
}

func (t *Tracker) Received() int {
	return len(t.received)
}
