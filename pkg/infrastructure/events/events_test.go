package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vsinha/batchplan/pkg/application/services/planner"
	"github.com/vsinha/batchplan/pkg/domain/entities"
)

type recordingHandler struct {
	types    map[string]bool
	received []Event
	err      error
}

func (h *recordingHandler) CanHandle(eventType string) bool { return h.types[eventType] }

func (h *recordingHandler) Handle(event Event) error {
	h.received = append(h.received, event)
	return h.err
}

func TestInMemoryEventStore_VersionsAndDispatch(t *testing.T) {
	store := NewInMemoryEventStore()
	handler := &recordingHandler{types: map[string]bool{ReorderPlacedEvent: true}}
	failing := &recordingHandler{types: map[string]bool{ReorderPlacedEvent: true}, err: errors.New("boom")}
	_ = store.Subscribe([]string{ReorderPlacedEvent}, failing)
	_ = store.Subscribe([]string{ReorderPlacedEvent, PlanCompletedEvent}, handler)

	if err := store.AppendEvent("run-1", NewEvent(ReorderPlacedEvent, "run-1", "a")); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	if err := store.AppendEvent("run-1", NewEvent(PlanCompletedEvent, "run-1", "b")); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	_ = store.AppendEvent("run-2", NewEvent(ReorderPlacedEvent, "run-2", "c"))

	events, _ := store.ReadEvents("run-1", 0)
	if len(events) != 2 {
		t.Fatalf("Expected 2 events in run-1, got %d", len(events))
	}
	if events[1].Version() != 2 {
		t.Errorf("Expected version 2, got %d", events[1].Version())
	}
	if later, _ := store.ReadEvents("run-1", 2); len(later) != 1 {
		t.Errorf("Expected 1 event from version 2, got %d", len(later))
	}
	if all, _ := store.ReadAllEvents(1); len(all) != 2 {
		t.Errorf("Expected 2 events from position 1, got %d", len(all))
	}

	// Dispatch is synchronous and a failing handler does not stop the next one
	if len(handler.received) != 2 {
		t.Errorf("Expected 2 reorder.placed deliveries, got %d", len(handler.received))
	}
	if len(failing.received) != 2 {
		t.Errorf("Expected failing handler to still receive 2 events, got %d", len(failing.received))
	}

	_ = store.Unsubscribe(handler)
	_ = store.AppendEvent("run-3", NewEvent(ReorderPlacedEvent, "run-3", "d"))
	if len(handler.received) != 2 {
		t.Errorf("Expected no deliveries after unsubscribe, got %d", len(handler.received))
	}
}

func TestOutcomeEvents(t *testing.T) {
	need := time.Date(2025, 1, 21, 0, 0, 0, 0, time.UTC)
	outcome := &planner.PlanOutcome{
		Events: []entities.ReorderEvent{
			{MaterialCode: "ACID", Quantity: 440, PlacedOn: need.AddDate(0, 0, -10), NeedDate: need, Deficit: 280, Late: true},
			{MaterialCode: "WATER", Quantity: 10, PlacedOn: need, NeedDate: need},
		},
		Arrivals: []planner.Arrival{{Date: need, MaterialCode: "ACID", Quantity: 440}},
	}

	got := OutcomeEvents("run-1", outcome)

	expected := []string{ShortageDetectedEvent, ReorderPlacedEvent, OrderLateEvent, ReorderPlacedEvent, ReorderArrivedEvent}
	if len(got) != len(expected) {
		t.Fatalf("Expected %d events, got %d", len(expected), len(got))
	}
	for i, want := range expected {
		if got[i].Type() != want {
			t.Errorf("Event %d: expected %s, got %s", i, want, got[i].Type())
		}
		if got[i].StreamID() != "run-1" {
			t.Errorf("Event %d: expected stream run-1, got %s", i, got[i].StreamID())
		}
	}
	if OutcomeEvents("run-1", nil) != nil {
		t.Error("Expected nil events for nil outcome")
	}
}

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Handle(t *testing.T) {
	writer := &fakeWriter{}
	publisher := &KafkaPublisher{writer: writer, timeout: time.Second}

	event := NewEvent(ReorderPlacedEvent, "run-7", ReorderPlaced{MaterialCode: "ACID", Quantity: 440})
	if err := publisher.Handle(event); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if len(writer.messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != "run-7" {
		t.Errorf("Expected key run-7, got %s", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != ReorderPlacedEvent {
		t.Errorf("Unexpected headers: %v", msg.Headers)
	}

	var envelope struct {
		Type  string `json:"type"`
		RunID string `json:"runId"`
		Data  struct {
			MaterialCode string  `json:"materialCode"`
			Qty          float64 `json:"qty"`
		} `json:"data"`
	}
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		t.Fatalf("Failed to decode message value: %v", err)
	}
	if envelope.Type != ReorderPlacedEvent || envelope.RunID != "run-7" || envelope.Data.Qty != 440 {
		t.Errorf("Unexpected envelope: %+v", envelope)
	}

	writer.err = errors.New("broker down")
	err := publisher.Handle(event)
	if err == nil || err.Error() != "failed to publish reorder.placed for run run-7: broker down" {
		t.Errorf("Expected wrapped publish error, got %v", err)
	}

	if !publisher.CanHandle(OrderLateEvent) || publisher.CanHandle("demand.created") {
		t.Error("Unexpected CanHandle result")
	}
	_ = publisher.Close()
	if !writer.closed {
		t.Error("Expected writer to be closed")
	}
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	if _, err := NewKafkaPublisher(nil, "topic"); err == nil {
		t.Error("Expected error without brokers")
	}
	if _, err := NewKafkaPublisher([]string{"localhost:9092"}, ""); err == nil {
		t.Error("Expected error without topic")
	}
	publisher, err := NewKafkaPublisher([]string{"localhost:9092"}, "batchplan.events")
	if err != nil {
		t.Fatalf("NewKafkaPublisher failed: %v", err)
	}
	_ = publisher.Close()
}

func TestNewKafkaPublisher_AsyncWriter(t *testing.T) {
	publisher, err := NewKafkaPublisher([]string{"localhost:9092"}, "batchplan.events")
	if err != nil {
		t.Fatalf("NewKafkaPublisher failed: %v", err)
	}
	defer publisher.Close()

	writer, ok := publisher.writer.(*kafka.Writer)
	if !ok {
		t.Fatalf("Expected *kafka.Writer, got %T", publisher.writer)
	}
	if !writer.Async {
		t.Error("Expected async writer so publishing does not block planning runs")
	}
	if writer.Completion == nil {
		t.Error("Expected a completion callback reporting delivery failures")
	}
	if writer.BatchTimeout <= 0 || writer.BatchTimeout > 50*time.Millisecond {
		t.Errorf("Expected a short batch timeout, got %v", writer.BatchTimeout)
	}
	if writer.Topic != "batchplan.events" {
		t.Errorf("Expected topic batchplan.events, got %s", writer.Topic)
	}
}

