package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

var at = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func sampleGroup() *model.BookingGroup {
	exp := at.Add(5 * time.Minute)
	return &model.BookingGroup{
		ID: "g-1",
		Tickets: []model.Ticket{
			{ID: "t-1", TripID: 10, SeatNumber: "A1", PriceCents: 1500, ExpiresAt: &exp},
			{ID: "t-2", TripID: 20, SeatNumber: "B3", PriceCents: 1500, ExpiresAt: &exp, IsReturnTrip: true},
		},
		ExpiresAt:       exp,
		TotalPriceCents: 3000,
	}
}

func TestNewBookingEvent(t *testing.T) {
	ev := NewBookingEvent(EventReserved, sampleGroup(), model.CancelReasonNone, at)
	if ev.BookingGroupID != "g-1" || len(ev.TicketIDs) != 2 || ev.TotalPriceCents != 3000 {
		t.Fatalf("ev = %+v", ev)
	}
	if len(ev.TripIDs) != 2 || ev.TripIDs[0] != 10 || ev.TripIDs[1] != 20 {
		t.Fatalf("TripIDs = %v", ev.TripIDs)
	}
	if ev.ExpiresAt == nil || !ev.ExpiresAt.Equal(at.Add(5*time.Minute)) {
		t.Fatalf("ExpiresAt = %v", ev.ExpiresAt)
	}

	cancelled := NewBookingEvent(EventCancelled, sampleGroup(), model.CancelReasonExpired, at)
	if cancelled.ExpiresAt != nil || cancelled.Reason != "expired" {
		t.Fatalf("cancelled = %+v", cancelled)
	}
}

func TestFormatAuditLine(t *testing.T) {
	line := FormatAuditLine(NewBookingEvent(EventCancelled, sampleGroup(), model.CancelReasonPaymentFailed, at))
	want := "[2026-03-01T08:00:00Z] booking.cancelled | group=g-1 | tickets=2 | seats=[A1,B3] | total=3000 cents | reason=payment_failed\n"
	if line != want {
		t.Fatalf("line =\n%q\nwant\n%q", line, want)
	}
}

func TestAuditConsumerHandleAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "booking.log")
	c := NewAuditConsumer(config.EventsConfig{AuditLog: path}, zaptest.NewLogger(t))

	for _, typ := range []EventType{EventReserved, EventConfirmed} {
		body, err := json.Marshal(NewBookingEvent(typ, sampleGroup(), model.CancelReasonNone, at))
		if err != nil {
			t.Fatal(err)
		}
		if err := c.handle(body); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "booking.reserved") || !strings.Contains(lines[1], "booking.confirmed") {
		t.Fatalf("log = %q", data)
	}

	if err := c.handle([]byte("{not json")); err == nil {
		t.Fatal("handle accepted malformed body")
	}
}

func TestKafkaMessageKeyedByGroup(t *testing.T) {
	ev := NewBookingEvent(EventConfirmed, sampleGroup(), model.CancelReasonNone, at)
	msg, err := kafkaMessage(ev)
	if err != nil {
		t.Fatalf("kafkaMessage: %v", err)
	}
	if string(msg.Key) != "g-1" || !msg.Time.Equal(at) {
		t.Fatalf("key %q time %v", msg.Key, msg.Time)
	}
	if len(msg.Headers) == 0 || msg.Headers[0].Key != "event-type" || string(msg.Headers[0].Value) != "booking.confirmed" {
		t.Fatalf("headers = %v", msg.Headers)
	}
	var back BookingEvent
	if err := json.Unmarshal(msg.Value, &back); err != nil || back.Type != EventConfirmed {
		t.Fatalf("value %s: %v", msg.Value, err)
	}
}

func TestNewKafkaPublisherValidates(t *testing.T) {
	log := zaptest.NewLogger(t)
	if _, err := NewKafkaPublisher(config.EventsConfig{KafkaTopic: "t"}, log); err == nil {
		t.Fatal("expected an error without brokers")
	}
	if _, err := NewKafkaPublisher(config.EventsConfig{KafkaBrokers: []string{"k:9092"}}, log); err == nil {
		t.Fatal("expected an error without a topic")
	}
	p, err := NewKafkaPublisher(config.EventsConfig{KafkaBrokers: []string{"k:9092"}, KafkaTopic: "t"}, log)
	if err != nil {
		t.Fatalf("NewKafkaPublisher: %v", err)
	}
	_ = p.Close()
}
