package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fxrisk/config"
)

func TestDiscordNotify(t *testing.T) {
	var got discordMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(config.DiscordConfig{Enabled: true, WebhookURL: srv.URL, Timeout: time.Second})
	if err := n.Notify(context.Background(), "Masterdata Futures job done"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got.Content != "Masterdata Futures job done" {
		t.Fatalf("content = %q", got.Content)
	}
}

func TestDiscordRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad webhook", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewDiscord(config.DiscordConfig{WebhookURL: srv.URL, Timeout: time.Second}).Notify(context.Background(), "x")
	if !errors.Is(err, ErrWebhookStatus) || !strings.Contains(err.Error(), "401") {
		t.Fatalf("err = %v", err)
	}
}

func TestDiscordTruncates(t *testing.T) {
	var got discordMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	long := strings.Repeat("a", discordContentLimit+50)
	if err := NewDiscord(config.DiscordConfig{WebhookURL: srv.URL, Timeout: time.Second}).Notify(context.Background(), long); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if n := len([]rune(got.Content)); n != discordContentLimit {
		t.Fatalf("content length = %d", n)
	}
}

func TestNewDisabledIsNop(t *testing.T) {
	if _, ok := New(config.DiscordConfig{}).(Nop); !ok {
		t.Fatal("disabled config should yield Nop")
	}
	if err := (Nop{}).Notify(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
}

func TestFormatUSD(t *testing.T) {
	cases := map[float64]string{
		0:          "$0.00",
		5.5:        "$5.50",
		999.999:    "$1,000.00",
		1234.56:    "$1,234.56",
		1234567.8:  "$1,234,567.80",
		-98765.432: "-$98,765.43",
	}
	for in, want := range cases {
		if got := FormatUSD(in); got != want {
			t.Errorf("FormatUSD(%v) = %q, want %q", in, got, want)
		}
	}
	if got := NAVMessage(1234.56); got != "NAV $1,234.56" {
		t.Errorf("NAVMessage = %q", got)
	}
}

func TestExposureMessage(t *testing.T) {
	got := ExposureMessage("FX delta", "CCY  total\n 6E  1.00\n")
	want := "FX delta\n```\nCCY  total\n 6E  1.00\n```"
	if got != want {
		t.Fatalf("ExposureMessage = %q", got)
	}
}
