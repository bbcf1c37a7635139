package writer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"goldflow/logger"
	"goldflow/models"
	"goldflow/shopify"
)

// Dispatcher pushes computed updates to the platform and keeps running
// counters for the report.
type Dispatcher struct {
	client         *shopify.Client
	log            *logger.Log
	pricesWritten  int64
	fieldsWritten  int64
	writesFailed   int64
	batchesApplied int64
}

func NewDispatcher(client *shopify.Client) *Dispatcher {
	return &Dispatcher{
		client: client,
		log:    logger.GetLogger(),
	}
}

// ApplyVariantPrices dispatches variant price updates in one bulk batch.
func (d *Dispatcher) ApplyVariantPrices(ctx context.Context, updates []models.VariantPriceUpdate) models.BatchResult {
	log := d.log.WithComponent("dispatcher").WithFields(logger.Fields{
		"operation": "apply_variant_prices",
		"batch_id":  uuid.NewString(),
		"count":     len(updates),
	})
	if len(updates) == 0 {
		log.Info("no price updates to apply")
		return models.BatchResult{}
	}

	start := time.Now()
	result := d.client.BulkUpdateVariantPrices(ctx, updates)
	d.record(result, time.Since(start), "variant_prices", log)
	atomic.AddInt64(&d.pricesWritten, int64(result.SuccessCount))
	return result
}

// ApplyProductMetafields dispatches bookkeeping metafield writes.
func (d *Dispatcher) ApplyProductMetafields(ctx context.Context, updates []models.MetafieldUpdate) models.BatchResult {
	log := d.log.WithComponent("dispatcher").WithFields(logger.Fields{
		"operation": "apply_product_metafields",
		"batch_id":  uuid.NewString(),
		"count":     len(updates),
	})
	if len(updates) == 0 {
		log.Info("no metafield updates to apply")
		return models.BatchResult{}
	}

	start := time.Now()
	result := d.client.BulkUpdateProductMetafields(ctx, updates)
	d.record(result, time.Since(start), "product_metafields", log)
	atomic.AddInt64(&d.fieldsWritten, int64(result.SuccessCount))
	return result
}

func (d *Dispatcher) record(result models.BatchResult, duration time.Duration, kind string, log *logger.Entry) {
	atomic.AddInt64(&d.batchesApplied, 1)
	atomic.AddInt64(&d.writesFailed, int64(result.FailedCount))

	fields := logger.Fields{
		"succeeded": result.SuccessCount,
		"failed":    result.FailedCount,
		"duration":  duration.Milliseconds(),
	}
	if result.FailedCount > 0 {
		log.WithFields(fields).Warn("batch applied with failures")
	} else {
		log.WithFields(fields).Info("batch applied")
	}
	log.LogMetric("dispatcher", "batch_success_count", result.SuccessCount, "counter", logger.Fields{"kind": kind})
	log.LogMetric("dispatcher", "batch_failed_count", result.FailedCount, "counter", logger.Fields{"kind": kind})
}

// Stats reports the dispatcher's lifetime counters.
func (d *Dispatcher) Stats() (prices, fields, failed, batches int64) {
	return atomic.LoadInt64(&d.pricesWritten),
		atomic.LoadInt64(&d.fieldsWritten),
		atomic.LoadInt64(&d.writesFailed),
		atomic.LoadInt64(&d.batchesApplied)
}
