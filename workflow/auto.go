package workflow

import (
	"context"
	"fmt"

	"goldflow/logger"
	"goldflow/pricing"
	"goldflow/processor"
)

// Auto is the scheduled daily run: fetch live spot rates, reprice the whole
// catalog (minus any excluded handles) and push the results. Manual rates
// supplied through the environment override the live fetch, which is how an
// operator repeats yesterday's run after a platform outage.
func Auto(ctx context.Context, env *Env) (Result, error) {
	run := newRunContext("auto")
	log := env.Log.WithComponent("workflow").WithFields(logger.Fields{
		"workflow": run.workflow,
		"run_id":   run.runID,
	})
	log.Info("starting automatic price update")

	goldRate := env.Params.GoldRate
	if goldRate == nil {
		rate, err := env.Rates.GoldRate(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("fetch gold rate: %w", err)
		}
		goldRate = &rate
	}
	silverRate := env.Params.SilverRate
	if silverRate == nil {
		rate, err := env.Rates.SilverRate(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("fetch silver rate: %w", err)
		}
		silverRate = &rate
	}
	run.goldRate = goldRate
	run.silverRate = silverRate

	settings, err := env.Shopify.GetSettings(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetch theme settings: %w", err)
	}
	taxPct := taxFromSettings(settings)
	diamonds := pricing.DiamondConfigFromSettings(settings)

	products, isAll, err := fetchCatalog(ctx, env)
	if err != nil {
		return Result{}, fmt.Errorf("fetch catalog: %w", err)
	}
	log.WithFields(logger.Fields{
		"products":      len(products),
		"full_catalog":  isAll,
		"diamond_types": diamonds.Len(),
		"tax_pct":       taxPct.String(),
	}).Info("catalog loaded")

	recordRatesInSettings(ctx, env, run, isAll)

	repricer := processor.NewRepricer(
		pricing.NewGoldCalculator(*goldRate, taxPct, diamonds),
		pricing.NewSilverCalculator(*silverRate),
	)
	out := repricer.Reprice(products)

	prices, fields := dispatch(ctx, env, out)

	result := finishRun(ctx, env, run, out, prices, fields, nil)
	log.WithFields(logger.Fields{
		"changes": result.Changes,
		"failed":  result.Failed,
	}).Info("automatic price update finished")
	return result, nil
}
