package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mohammed-shakir/grid-dicer/internal/core/config"
	"github.com/mohammed-shakir/grid-dicer/internal/dicer"
	"github.com/mohammed-shakir/grid-dicer/internal/sink/geojsonsink"
	"github.com/mohammed-shakir/grid-dicer/internal/sink/kafkasink"
	"github.com/mohammed-shakir/grid-dicer/internal/sink/redissink"
	"github.com/mohammed-shakir/grid-dicer/internal/sink/tsvsink"
)

// openedSink pairs a sink with whatever releases its resources.
type openedSink struct {
	dicer.Sink
	io.Closer
}

func openSink(ctx context.Context, sc config.SinkCfg, log *slog.Logger) (openedSink, error) {
	switch sc.Driver {
	case "", "tsv":
		s, err := tsvsink.Create(sc.OutputPath)
		if err != nil {
			return openedSink{}, err
		}
		return openedSink{s, s}, nil
	case "geojson":
		s, err := geojsonsink.Create(sc.OutputPath)
		if err != nil {
			return openedSink{}, err
		}
		return openedSink{s, s}, nil
	case "redis":
		cli, err := redissink.Dial(ctx, sc.RedisAddr)
		if err != nil {
			return openedSink{}, err
		}
		log.Info("redis sink ready", "addr", sc.RedisAddr, "ttl", sc.RedisTTL)
		return openedSink{redissink.New(cli, redissink.Options{TTL: sc.RedisTTL}), cli}, nil
	case "kafka":
		prod, err := kafkasink.NewProducer(sc.KafkaBrokers)
		if err != nil {
			return openedSink{}, err
		}
		s := kafkasink.New(prod, sc.KafkaTopic, 0)
		log.Info("kafka sink ready", "brokers", sc.KafkaBrokers, "topic", sc.KafkaTopic)
		return openedSink{s, s}, nil
	default:
		return openedSink{}, fmt.Errorf("unknown sink driver %q", sc.Driver)
	}
}
