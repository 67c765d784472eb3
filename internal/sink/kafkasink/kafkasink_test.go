package kafkasink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/mohammed-shakir/grid-dicer/internal/core/model"
)

func checkFragment(loc int64, tile int) mocks.ValueChecker {
	return func(val []byte) error {
		var m Message
		if err := json.Unmarshal(val, &m); err != nil {
			return err
		}
		if m.LocationID != loc || m.TileID != tile || m.WKB != "0103AB" {
			return fmt.Errorf("unexpected message %+v", m)
		}
		return nil
	}
}

func TestSink_BatchesUntilFlush(t *testing.T) {
	prod := mocks.NewSyncProducer(t, nil)
	prod.ExpectSendMessageWithCheckerFunctionAndSucceed(checkFragment(10, 1))
	prod.ExpectSendMessageWithCheckerFunctionAndSucceed(checkFragment(10, 2))
	prod.ExpectSendMessageWithCheckerFunctionAndSucceed(checkFragment(11, 3))

	s := New(prod, "fragments", 2)
	ctx := context.Background()
	for _, f := range []model.Fragment{
		{ListID: 1, LocationID: 10, TileID: 1, WKB: []byte{0x01, 0x03, 0xab}},
		{ListID: 1, LocationID: 10, TileID: 2, WKB: []byte("0103AB"), Hex: true},
		{ListID: 1, LocationID: 11, TileID: 3, WKB: []byte("0103AB"), Hex: true},
	} {
		if err := s.Write(ctx, f); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if len(s.pending) != 1 {
		t.Fatalf("pending=%d want 1 after an automatic batch", len(s.pending))
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("empty Flush: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSink_FlushSurfacesProducerErrors(t *testing.T) {
	prod := mocks.NewSyncProducer(t, nil)
	prod.ExpectSendMessageAndFail(sarama.ErrNotEnoughReplicas)

	s := New(prod, "fragments", 10)
	ctx := context.Background()
	if err := s.Write(ctx, model.Fragment{LocationID: 1, WKB: []byte("AA"), Hex: true}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	err := s.Flush(ctx)
	if !errors.Is(err, sarama.ErrNotEnoughReplicas) {
		t.Fatalf("want ErrNotEnoughReplicas, got %v", err)
	}
	if len(s.pending) != 1 {
		t.Fatalf("failed batch dropped")
	}
	_ = prod.Close()
}

func TestMessage_KeyedByLocation(t *testing.T) {
	s := New(nil, "fragments", 0)
	msg, err := s.message(model.Fragment{ListID: 2, LocationID: 77, TileID: 5, WKB: []byte("AB"), Hex: true})
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	k, _ := msg.Key.Encode()
	if string(k) != "77" || msg.Topic != "fragments" {
		t.Fatalf("key=%q topic=%q", k, msg.Topic)
	}
	v, _ := msg.Value.Encode()
	var m Message
	if err := json.Unmarshal(v, &m); err != nil {
		t.Fatalf("value is not json: %v", err)
	}
	if m.ListID != 2 || m.LocationID != 77 || m.TileID != 5 || m.WKB != "AB" {
		t.Fatalf("message %+v", m)
	}
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	if _, err := NewProducer(nil); err == nil {
		t.Fatalf("expected error without brokers")
	}
}
