package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type SinkCfg struct {
	Driver       string
	OutputPath   string
	UndicedPath  string
	RedisAddr    string
	RedisTTL     time.Duration
	KafkaBrokers []string
	KafkaTopic   string
}

type MetricsCfg struct {
	Enabled bool
	Addr    string
}

type Config struct {
	CellSizeDegrees float64
	MinFragmentArea float64
	HexOutput       bool
	Workers         int
	QueueSize       int
	DedupeSize      int

	// AcceptSRID lists the EWKB SRIDs accepted on input. Empty means plain
	// WKB only.
	AcceptSRID []int
	LogLevel   string
	LogConsole bool
	LogSampleN int
	Metrics    MetricsCfg
	Sink       SinkCfg
}

func FromEnv() Config {
	return Config{
		CellSizeDegrees: getfloat("CELL_SIZE_DEGREES", 1.0),
		MinFragmentArea: getfloat("MIN_FRAGMENT_AREA", 0),
		HexOutput:       getbool("HEX_OUTPUT", true),
		Workers:         getint("WORKERS", 0),
		QueueSize:       getint("QUEUE_SIZE", 64),
		DedupeSize:      getint("DEDUPE_SIZE", 1<<16),
		AcceptSRID:      parseInts(getenv("ACCEPT_SRID", "")),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogConsole:      getbool("LOG_CONSOLE", false),
		LogSampleN:      max(getint("LOG_SAMPLE_N", 0), 0),
		Metrics: MetricsCfg{
			Enabled: getbool("METRICS_ENABLED", false),
			Addr:    getenv("METRICS_ADDR", ":9090"),
		},
		Sink: SinkCfg{
			Driver:       strings.ToLower(getenv("SINK_DRIVER", "tsv")),
			OutputPath:   getenv("OUTPUT_PATH", "diced_out.txt"),
			UndicedPath:  getenv("UNDICED_OUTPUT_PATH", ""),
			RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
			RedisTTL:     getduration("REDIS_TTL", 0),
			KafkaBrokers: parseList(getenv("KAFKA_BROKERS", "localhost:9092")),
			KafkaTopic:   getenv("KAFKA_TOPIC", "diced-fragments"),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parse "a, b,,c" into [a b c]
func parseList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// unparseable entries are dropped
func parseInts(s string) []int {
	var out []int
	for _, p := range parseList(s) {
		if n, err := strconv.Atoi(p); err == nil {
			out = append(out, n)
		}
	}
	return out
}
