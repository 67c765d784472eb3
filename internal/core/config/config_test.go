package config

import (
	"slices"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"CELL_SIZE_DEGREES", "HEX_OUTPUT", "SINK_DRIVER", "ACCEPT_SRID", "KAFKA_BROKERS", "WORKERS"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	if c.CellSizeDegrees != 1.0 {
		t.Fatalf("cell size=%v want 1", c.CellSizeDegrees)
	}
	if !c.HexOutput {
		t.Fatalf("hex output should default to true")
	}
	if c.Workers != 0 || c.QueueSize != 64 {
		t.Fatalf("workers=%d queue=%d", c.Workers, c.QueueSize)
	}
	if c.Sink.Driver != "tsv" || c.Sink.OutputPath != "diced_out.txt" {
		t.Fatalf("sink=%+v", c.Sink)
	}
	if len(c.AcceptSRID) != 0 {
		t.Fatalf("srid list should be empty, got %v", c.AcceptSRID)
	}
	if !slices.Equal(c.Sink.KafkaBrokers, []string{"localhost:9092"}) {
		t.Fatalf("brokers=%v", c.Sink.KafkaBrokers)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CELL_SIZE_DEGREES", "0.5")
	t.Setenv("MIN_FRAGMENT_AREA", "1e-9")
	t.Setenv("HEX_OUTPUT", "no")
	t.Setenv("WORKERS", "3")
	t.Setenv("SINK_DRIVER", "Redis")
	t.Setenv("REDIS_TTL", "90s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ACCEPT_SRID", "4326,x,3857")
	t.Setenv("LOG_SAMPLE_N", "-4")
	t.Setenv("METRICS_ENABLED", "1")

	c := FromEnv()
	if c.CellSizeDegrees != 0.5 || c.MinFragmentArea != 1e-9 {
		t.Fatalf("cell=%v eps=%v", c.CellSizeDegrees, c.MinFragmentArea)
	}
	if c.HexOutput {
		t.Fatalf("HEX_OUTPUT=no should disable hex")
	}
	if c.Workers != 3 {
		t.Fatalf("workers=%d", c.Workers)
	}
	if c.Sink.Driver != "redis" || c.Sink.RedisTTL != 90*time.Second {
		t.Fatalf("sink=%+v", c.Sink)
	}
	if !slices.Equal(c.Sink.KafkaBrokers, []string{"k1:9092", "k2:9092"}) {
		t.Fatalf("brokers=%v", c.Sink.KafkaBrokers)
	}
	if !slices.Equal(c.AcceptSRID, []int{4326, 3857}) {
		t.Fatalf("srids=%v", c.AcceptSRID)
	}
	if c.LogSampleN != 0 {
		t.Fatalf("negative sample rate should clamp to 0, got %d", c.LogSampleN)
	}
	if !c.Metrics.Enabled {
		t.Fatalf("metrics should be enabled")
	}
}

func TestFromEnv_BadValuesKeepDefaults(t *testing.T) {
	t.Setenv("QUEUE_SIZE", "lots")
	t.Setenv("CELL_SIZE_DEGREES", "one")
	t.Setenv("REDIS_TTL", "soon")
	c := FromEnv()
	if c.QueueSize != 64 || c.CellSizeDegrees != 1.0 || c.Sink.RedisTTL != 0 {
		t.Fatalf("bad values leaked: %+v", c)
	}
}
