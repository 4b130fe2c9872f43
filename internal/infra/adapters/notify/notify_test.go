//go:build !integration

package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"creator-monetization/internal/domain/ports/adapter"
)

type MockSender struct {
	SendFunc func(c tgbotapi.Chattable) (tgbotapi.Message, error)
	sent     []tgbotapi.MessageConfig
}

func (m *MockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if mc, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent = append(m.sent, mc)
	}
	if m.SendFunc != nil {
		return m.SendFunc(c)
	}
	return tgbotapi.Message{}, nil
}

type MockNotifier struct {
	NotifyFunc func(ctx context.Context, n adapter.Notification) error
	calls      int
}

func (m *MockNotifier) Notify(ctx context.Context, n adapter.Notification) error {
	m.calls++
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, n)
	}
	return nil
}

func quiet() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

var payoutDone = adapter.Notification{
	RecipientID: "creator-1",
	Kind:        adapter.NotificationPayoutCompleted,
	Title:       "Payout completed",
	Body:        "Your payout of 500 coins was sent.",
	Data:        map[string]string{"payout_id": "po-1", "amount": "500"},
}

func TestTelegramNotifier_Formats(t *testing.T) {
	sender := &MockSender{}
	n := newTelegramNotifier(sender, -100123, quiet())

	if err := n.Notify(context.Background(), payoutDone); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.ChatID != -100123 {
		t.Errorf("chat id = %d", msg.ChatID)
	}
	want := "[payout_completed] Payout completed\nYour payout of 500 coins was sent.\nrecipient: creator-1\namount: 500\npayout_id: po-1"
	if msg.Text != want {
		t.Errorf("text =\n%s\nwant\n%s", msg.Text, want)
	}
}

func TestTelegramNotifier_KindFilterAndErrors(t *testing.T) {
	sender := &MockSender{SendFunc: func(tgbotapi.Chattable) (tgbotapi.Message, error) {
		return tgbotapi.Message{}, errors.New("chat not found")
	}}
	n := newTelegramNotifier(sender, 1, quiet(), adapter.NotificationPayoutFailed)

	if err := n.Notify(context.Background(), payoutDone); err != nil {
		t.Fatalf("filtered kind should be skipped, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("filtered kind was sent")
	}

	failed := payoutDone
	failed.Kind = adapter.NotificationPayoutFailed
	if err := n.Notify(context.Background(), failed); err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected send error, got %v", err)
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)
	if err := NewLogNotifier(&l).Notify(context.Background(), payoutDone); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{`"recipient_id":"creator-1"`, `"kind":"payout_completed"`, `"data_payout_id":"po-1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log line missing %s: %s", want, out)
		}
	}
}

func TestFanout(t *testing.T) {
	ok := &MockNotifier{}
	bad := &MockNotifier{NotifyFunc: func(context.Context, adapter.Notification) error { return errors.New("boom") }}
	f := NewFanout(bad, nil, ok)

	err := f.Notify(context.Background(), payoutDone)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if ok.calls != 1 || bad.calls != 1 {
		t.Errorf("calls ok=%d bad=%d", ok.calls, bad.calls)
	}
	if err := NewFanout().Notify(context.Background(), payoutDone); err != nil {
		t.Errorf("empty fanout: %v", err)
	}
}
