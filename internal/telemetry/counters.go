package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Migration counters. All instruments are lazily no-op until Init runs
// with telemetry enabled, so call sites never need to check Enabled().
var (
	admissions  metric.Int64Counter
	waitSeconds metric.Float64Counter
	cooldowns   metric.Int64Counter
	batches     metric.Int64Counter
	items       metric.Int64Counter
)

func initInstruments() {
	meter := otel.Meter(instrumentationScope)

	admissions, _ = meter.Int64Counter("spaceferry.admissions",
		metric.WithDescription("API calls admitted through the rate gate"))
	waitSeconds, _ = meter.Float64Counter("spaceferry.admission_wait_seconds",
		metric.WithDescription("Cumulative time spent waiting for token refill"))
	cooldowns, _ = meter.Int64Counter("spaceferry.cooldowns",
		metric.WithDescription("429 cooldown periods triggered"))
	batches, _ = meter.Int64Counter("spaceferry.batches",
		metric.WithDescription("Batch attempts by outcome"))
	items, _ = meter.Int64Counter("spaceferry.items",
		metric.WithDescription("Imported items by kind and outcome"))
}

// CountAdmission records one admitted call and any refill wait it paid.
func CountAdmission(ctx context.Context, waited time.Duration) {
	if admissions == nil {
		return
	}
	admissions.Add(ctx, 1)
	if waited > 0 {
		waitSeconds.Add(ctx, waited.Seconds())
	}
}

// CountCooldown records one 429-triggered cooldown period.
func CountCooldown(ctx context.Context) {
	if cooldowns == nil {
		return
	}
	cooldowns.Add(ctx, 1)
}

// CountBatch records a terminal batch outcome ("completed" or "failed").
func CountBatch(ctx context.Context, outcome string) {
	if batches == nil {
		return
	}
	batches.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// CountItem records one imported item ("asset" or "entry"; "ok" or "error").
func CountItem(ctx context.Context, kind, outcome string) {
	if items == nil {
		return
	}
	items.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome)))
}
