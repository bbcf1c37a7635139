package workflow

import (
	"context"
	"fmt"

	"goldflow/logger"
	"goldflow/pricing"
	"goldflow/processor"
)

// Manual reprices with operator supplied rates. Only the families a rate was
// given for are touched: a GOLD_RATE without a SILVER_RATE leaves silver
// products alone. At least one rate is required; a manual run with neither
// has nothing to do and refusing is safer than silently fetching live rates.
func Manual(ctx context.Context, env *Env) (Result, error) {
	if env.Params.GoldRate == nil && env.Params.SilverRate == nil {
		return Result{}, fmt.Errorf("manual run requires GOLD_RATE or SILVER_RATE")
	}

	run := newRunContext("manual")
	run.goldRate = env.Params.GoldRate
	run.silverRate = env.Params.SilverRate
	log := env.Log.WithComponent("workflow").WithFields(logger.Fields{
		"workflow": run.workflow,
		"run_id":   run.runID,
	})
	log.Info("starting manual price update")

	var gold *pricing.GoldCalculator
	var silver *pricing.SilverCalculator

	if run.goldRate != nil {
		var diamonds *pricing.DiamondConfig
		taxPct := defaultTaxPct
		if env.Params.DiamondConfigText != "" {
			diamonds = pricing.ParseDiamondConfig(env.Params.DiamondConfigText)
		}
		if env.Params.UseThemeSettings {
			settings, err := env.Shopify.GetSettings(ctx)
			if err != nil {
				return Result{}, fmt.Errorf("fetch theme settings: %w", err)
			}
			taxPct = taxFromSettings(settings)
			if diamonds == nil {
				diamonds = pricing.DiamondConfigFromSettings(settings)
			}
		}
		gold = pricing.NewGoldCalculator(*run.goldRate, taxPct, diamonds)
	}
	if run.silverRate != nil {
		silver = pricing.NewSilverCalculator(*run.silverRate)
	}

	products, isAll, err := fetchCatalog(ctx, env)
	if err != nil {
		return Result{}, fmt.Errorf("fetch catalog: %w", err)
	}
	log.WithFields(logger.Fields{
		"products":     len(products),
		"full_catalog": isAll,
		"gold":         gold != nil,
		"silver":       silver != nil,
	}).Info("catalog loaded")

	recordRatesInSettings(ctx, env, run, isAll)

	repricer := processor.NewRepricer(gold, silver)
	out := repricer.Reprice(products)

	prices, fields := dispatch(ctx, env, out)

	result := finishRun(ctx, env, run, out, prices, fields, nil)
	log.WithFields(logger.Fields{
		"changes": result.Changes,
		"failed":  result.Failed,
	}).Info("manual price update finished")
	return result, nil
}
