package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"goldflow/catalog"
	"goldflow/config"
	"goldflow/logger"
	"goldflow/models"
	"goldflow/notifier"
	"goldflow/processor"
	"goldflow/reader/goldapi"
	"goldflow/shopify"
	"goldflow/writer"
)

// Env bundles the collaborators a workflow run needs. Archive may be nil when
// run archiving is disabled.
type Env struct {
	Cfg        *config.Config
	Params     *config.RunParams
	Log        *logger.Log
	Shopify    *shopify.Client
	Rates      *goldapi.Reader
	Dispatcher *writer.Dispatcher
	Archive    *writer.ArchiveWriter
	Notifier   *notifier.Notifier
}

// Result summarises a finished workflow run.
type Result struct {
	RunID   string
	Changes int
	Failed  int
}

const (
	taxSettingKey     = "gst_percentage"
	goldRateSetting   = "gold_rate"
	silverRateSetting = "silver_rate"
)

var defaultTaxPct = decimal.NewFromInt(3)

// taxFromSettings reads the tax percentage out of theme settings, falling
// back to the standard GST rate when the setting is absent or malformed.
func taxFromSettings(settings map[string]string) decimal.Decimal {
	raw, ok := settings[taxSettingKey]
	if !ok || raw == "" {
		return defaultTaxPct
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return defaultTaxPct
	}
	return value
}

// fetchCatalog pulls the product list and applies the run's handle filters.
// The bool reports whether the filtered list still covers the whole catalog.
func fetchCatalog(ctx context.Context, env *Env) ([]models.Product, bool, error) {
	products, err := env.Shopify.GetAllProducts(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	filtered, isAll := catalog.FilterByHandles(products, env.Params.IncludeHandles, env.Params.ExcludeHandles)
	return filtered, isAll, nil
}

type runContext struct {
	runID      string
	workflow   string
	startedAt  time.Time
	goldRate   *decimal.Decimal
	silverRate *decimal.Decimal
}

func newRunContext(workflow string) runContext {
	return runContext{
		runID:     uuid.NewString(),
		workflow:  workflow,
		startedAt: time.Now().UTC(),
	}
}

// dispatch applies the repricer output and assembles the run result.
func dispatch(ctx context.Context, env *Env, out *processor.Output) (models.BatchResult, models.BatchResult) {
	prices := env.Dispatcher.ApplyVariantPrices(ctx, out.PriceUpdates)
	fields := env.Dispatcher.ApplyProductMetafields(ctx, out.MetafieldUpdates)
	return prices, fields
}

// finishRun archives the change log and emails the report. Both are best
// effort; the prices are already written.
func finishRun(ctx context.Context, env *Env, run runContext, out *processor.Output, prices, fields models.BatchResult, extraSummary []notifier.SummaryItem) Result {
	combined := prices.Merge(fields)

	if env.Archive != nil {
		header := writer.ArchiveHeader{
			RunID:     run.runID,
			Workflow:  run.workflow,
			StartedAt: run.startedAt.Format(time.RFC3339),
			Changes:   len(out.Details),
			Failed:    combined.FailedCount,
		}
		if run.goldRate != nil {
			header.GoldRate = run.goldRate.String()
		}
		if run.silverRate != nil {
			header.SilverRate = run.silverRate.String()
		}
		env.Archive.ArchiveRun(ctx, header, out.Details)
	}

	summary := []notifier.SummaryItem{
		{Label: "Run ID", Value: run.runID},
		{Label: "Started", Value: run.startedAt.Format("2006-01-02 15:04:05 MST")},
	}
	if run.goldRate != nil {
		summary = append(summary, notifier.SummaryItem{Label: "Gold Rate (per gram, 24K)", Value: run.goldRate.String()})
	}
	if run.silverRate != nil {
		summary = append(summary, notifier.SummaryItem{Label: "Silver Rate (per gram)", Value: run.silverRate.String()})
	}
	summary = append(summary, extraSummary...)
	summary = append(summary,
		notifier.SummaryItem{Label: "Variants Repriced", Value: fmt.Sprintf("%d", len(out.Details))},
		notifier.SummaryItem{Label: "Writes Succeeded", Value: fmt.Sprintf("%d", combined.SuccessCount)},
		notifier.SummaryItem{Label: "Writes Failed", Value: fmt.Sprintf("%d", combined.FailedCount)},
	)

	env.Notifier.SendReport(notifier.Report{
		Subject:  fmt.Sprintf("[goldflow] %s - %s", workflowTitle(run.workflow), run.startedAt.Format("2006-01-02")),
		Workflow: run.workflow,
		Summary:  summary,
		Details:  out.Details,
		Errors:   combined.Errors,
	})

	return Result{RunID: run.runID, Changes: len(out.Details), Failed: combined.FailedCount}
}

func workflowTitle(workflow string) string {
	switch workflow {
	case "auto":
		return "Automatic Price Update"
	case "manual":
		return "Manual Price Update"
	case "diamond":
		return "Diamond Price Update"
	default:
		return "Price Update"
	}
}

// recordRatesInSettings writes the run's metal rates into theme settings so
// the storefront can display them. Only full catalog runs do this: a partial
// run pricing a handful of handles must not advertise a store wide rate.
func recordRatesInSettings(ctx context.Context, env *Env, run runContext, isAll bool) {
	log := env.Log.WithComponent("workflow").WithFields(logger.Fields{"run_id": run.runID})
	if !isAll {
		log.Info("partial catalog run, leaving theme rate settings untouched")
		return
	}

	changes := map[string]string{}
	if run.goldRate != nil {
		changes[goldRateSetting] = run.goldRate.String()
	}
	if run.silverRate != nil {
		changes[silverRateSetting] = run.silverRate.String()
	}
	if len(changes) == 0 {
		return
	}
	if err := env.Shopify.UpdateSettings(ctx, changes); err != nil {
		log.WithError(err).Warn("failed to record rates in theme settings")
	}
}
