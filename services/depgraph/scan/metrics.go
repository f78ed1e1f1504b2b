// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scan

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("uiregistry.scan")
	meter  = otel.Meter("uiregistry.scan")
)

var (
	scanLatency  metric.Float64Histogram
	scanTotal    metric.Int64Counter
	filesScanned metric.Int64Counter
	watchBatches metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		scanLatency, err = meter.Float64Histogram(
			"scan_duration_seconds",
			metric.WithDescription("Duration of full directory scans"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		scanTotal, err = meter.Int64Counter(
			"scan_total",
			metric.WithDescription("Total number of scans"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		filesScanned, err = meter.Int64Counter(
			"scan_files_total",
			metric.WithDescription("Total number of files read by scans"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		watchBatches, err = meter.Int64Counter(
			"scan_watch_batches_total",
			metric.WithDescription("Debounced change batches delivered by the watcher"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordScanMetrics(ctx context.Context, duration time.Duration, stats Stats, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	scanLatency.Record(ctx, duration.Seconds(), attrs)
	scanTotal.Add(ctx, 1, attrs)
	if success {
		filesScanned.Add(ctx, int64(stats.Files))
	}
}

func recordWatchBatch(ctx context.Context, changes int) {
	if err := initMetrics(); err != nil {
		return
	}
	watchBatches.Add(ctx, 1, metric.WithAttributes(attribute.Int("changes", changes)))
}

func startScanSpan(ctx context.Context, root string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Scanner.Scan",
		trace.WithAttributes(attribute.String("scan.root", root)),
	)
}

func setScanSpanResult(span trace.Span, stats Stats, err error) {
	span.SetAttributes(
		attribute.Int("scan.directories", stats.Directories),
		attribute.Int("scan.files", stats.Files),
		attribute.Int("scan.imports", stats.Imports),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
