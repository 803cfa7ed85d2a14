// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AccelByte/extend-arena-matchmaker/pkg/common"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/config"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/engine"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/metrics"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/notify"
	"github.com/AccelByte/extend-arena-matchmaker/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		logrus.Fatalf("matchmaker stopped: %+v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err = cfg.Validate(); err != nil {
		return err
	}
	if err = common.ConfigureLogger(cfg.LogLevel, cfg.LogJSON); err != nil {
		return err
	}
	doc, err := cfg.LoadPolicyDocument()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ZipkinURL != "" {
		shutdown, err := setupTracing(cfg.ServiceName, cfg.ZipkinURL)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	notifier, closeNotifier, err := setupNotifier(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()

	e, err := engine.New(doc, cfg.Tuning(),
		engine.WithMetrics(metrics.NewMetrics(registry)),
		engine.WithNotifier(notifier),
		engine.WithTickInterval(cfg.TickInterval()),
		engine.WithLifecycleCheckInterval(cfg.LifecycleCheckInterval()),
	)
	if err != nil {
		return err
	}

	grpcServer := server.NewGRPCServer(e, registry, logrus.StandardLogger())
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return eris.Wrapf(err, "failed to listen on gRPC port %d", cfg.GRPCPort)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logrus.WithFields(logrus.Fields{
		"gameModes":   e.GameModes(),
		"grpcPort":    cfg.GRPCPort,
		"metricsPort": cfg.MetricsPort,
	}).Info("matchmaker starting")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.Run(ctx)
	})
	g.Go(func() error {
		return grpcServer.Serve(listener)
	})
	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logrus.Info("matchmaker shutting down")
		grpcServer.GracefulStop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func setupTracing(serviceName, zipkinURL string) (func(), error) {
	exporter, err := zipkin.New(zipkinURL)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create zipkin exporter")
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		b3.New(),
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logrus.WithError(err).Warn("failed to flush traces")
		}
	}, nil
}

func setupNotifier(ctx context.Context, cfg *config.Config) (notify.Notifier, func(), error) {
	if cfg.RedisAddr == "" {
		return notify.LogNotifier{}, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, eris.Wrapf(err, "failed to reach redis at %s", cfg.RedisAddr)
	}
	notifier := notify.Fanout{
		notify.LogNotifier{},
		notify.NewRedisNotifier(client, cfg.RedisChannelPrefix),
	}
	return notifier, func() { _ = client.Close() }, nil
}
