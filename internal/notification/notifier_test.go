package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"algocore/internal/model"
)

func TestEscapeMarkdownV2(t *testing.T) {
	got := escapeMarkdownV2("net=-5 (avg_price: 110.00)")
	want := `net\=\-5 \(avg\_price: 110\.00\)`
	if got != want {
		t.Fatalf("escape: got %q want %q", got, want)
	}
	if escapeMarkdownV2("plain words") != "plain words" {
		t.Fatal("plain text must pass through unescaped")
	}
}

func TestAlertConstructors(t *testing.T) {
	a := PlacementFailed("BTCUSD", errors.New("venue down"))
	if a.Level != LevelWarning || a.Symbol != "BTCUSD" || a.Message != "venue down" {
		t.Fatalf("placement-failed alert malformed: %+v", a)
	}
	if a.At.IsZero() {
		t.Fatal("alert timestamp not set")
	}

	if v := OrderingViolation("BTCUSD", errors.New("out of order")); v.Level != LevelCritical {
		t.Fatalf("ordering violation must be critical, got %v", v.Level)
	}

	f := PositionFlipped("BTCUSD", -5, 11000)
	if f.Level != LevelWarning || !strings.Contains(f.Message, "net=-5") {
		t.Fatalf("flip alert malformed: %+v", f)
	}

	ord := model.Order{ID: "ord-1", Symbol: "BTCUSD", Side: model.SideBuy, Qty: 100}
	p := OrderPlaced(ord)
	if p.Level != LevelInfo || !strings.Contains(p.Message, "id=ord-1") {
		t.Fatalf("order-placed alert malformed: %+v", p)
	}
}

func TestTelegramNotifier_Send(t *testing.T) {
	var gotPath string
	var gotReq sendMessageReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("tok123", "chat42")
	n.apiBase = srv.URL

	err := n.Send(context.Background(), PlacementFailed("BTCUSD", errors.New("status 503")))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/bottok123/sendMessage" {
		t.Fatalf("wrong path %q", gotPath)
	}
	if gotReq.ChatID != "chat42" || gotReq.ParseMode != "MarkdownV2" {
		t.Fatalf("wrong request fields: %+v", gotReq)
	}
	if !strings.Contains(gotReq.Text, `order placement failed`) || !strings.Contains(gotReq.Text, "BTCUSD") {
		t.Fatalf("alert text missing fields: %q", gotReq.Text)
	}
}

func TestTelegramNotifier_SendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("tok", "chat")
	n.apiBase = srv.URL

	if err := n.Send(context.Background(), PositionFlipped("BTCUSD", 5, 100)); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
