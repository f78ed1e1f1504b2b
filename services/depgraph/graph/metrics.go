// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

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
	tracer = otel.Tracer("uiregistry.graph")
	meter  = otel.Meter("uiregistry.graph")
)

var (
	annotateLatency metric.Float64Histogram
	unresolvedTotal metric.Int64Counter
	candidatesFound metric.Int64Histogram
	closureLatency  metric.Float64Histogram
	closureFiles    metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		annotateLatency, err = meter.Float64Histogram(
			"graph_annotate_duration_seconds",
			metric.WithDescription("Duration of edge resolution and import counting"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		unresolvedTotal, err = meter.Int64Counter(
			"graph_unresolved_edges_total",
			metric.WithDescription("Import edges whose candidates matched no file"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		candidatesFound, err = meter.Int64Histogram(
			"graph_candidates",
			metric.WithDescription("Component candidates per annotated graph"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		closureLatency, err = meter.Float64Histogram(
			"graph_closure_duration_seconds",
			metric.WithDescription("Duration of closure computation"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		closureFiles, err = meter.Int64Histogram(
			"graph_closure_files",
			metric.WithDescription("Files per computed closure"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordAnnotateMetrics(ctx context.Context, stats Stats) {
	if err := initMetrics(); err != nil {
		return
	}
	annotateLatency.Record(ctx, stats.Duration.Seconds())
	unresolvedTotal.Add(ctx, int64(stats.UnresolvedEdges))
	candidatesFound.Record(ctx, int64(stats.Candidates))
}

func recordClosureMetrics(ctx context.Context, duration time.Duration, c *Closure) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("approximate", c.Approximate))
	closureLatency.Record(ctx, duration.Seconds(), attrs)
	closureFiles.Record(ctx, int64(len(c.FileDependencies)), attrs)
}

func startAnnotateSpan(ctx context.Context) (context.Context, trace.Span) {
	return tracer.Start(ctx, "graph.Annotate")
}

func setAnnotateSpanResult(span trace.Span, stats Stats, err error) {
	span.SetAttributes(
		attribute.Int("graph.files", stats.Files),
		attribute.Int("graph.edges", stats.Edges),
		attribute.Int("graph.unresolved_edges", stats.UnresolvedEdges),
		attribute.Int("graph.candidates", stats.Candidates),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func startClosureSpan(ctx context.Context, candidate string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Graph.Closure",
		trace.WithAttributes(attribute.String("graph.candidate", candidate)),
	)
}

func setClosureSpanResult(span trace.Span, c *Closure) {
	span.SetAttributes(
		attribute.Int("closure.files", len(c.FileDependencies)),
		attribute.Int("closure.dependencies", len(c.Dependencies)),
		attribute.Int("closure.registry_dependencies", len(c.RegistryDependencies)),
		attribute.Bool("closure.approximate", c.Approximate),
	)
}
