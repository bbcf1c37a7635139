package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"goldflow/catalog"
	"goldflow/logger"
	"goldflow/notifier"
	"goldflow/pricing"
	"goldflow/processor"
)

// Diamond reprices the gold products carrying the stone types in play. The
// prices come from DIAMOND_CONFIGS when the operator supplied it, in which
// case matching theme slots are updated first; otherwise the theme's
// configured diamond slots drive the run unchanged. Silver products never
// use configured diamond prices, so they are out of scope here.
func Diamond(ctx context.Context, env *Env) (Result, error) {
	run := newRunContext("diamond")
	log := env.Log.WithComponent("workflow").WithFields(logger.Fields{
		"workflow": run.workflow,
		"run_id":   run.runID,
	})
	log.Info("starting diamond price update")

	settings, err := env.Shopify.GetSettings(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetch theme settings: %w", err)
	}
	taxPct := taxFromSettings(settings)

	stones, manual, err := resolveDiamondConfig(env.Params.DiamondConfigText, settings)
	if err != nil {
		return Result{}, err
	}
	log.WithFields(logger.Fields{
		"stone_types": stones.Names(),
		"manual":      manual,
	}).Info("diamond configuration resolved")

	if manual {
		updates := diamondSettingChanges(settings, stones)
		if len(updates) == 0 {
			log.Warn("no theme diamond slot matches the provided stone types")
		} else {
			if err := env.Shopify.UpdateSettings(ctx, updates); err != nil {
				return Result{}, fmt.Errorf("write diamond settings: %w", err)
			}
			log.WithFields(logger.Fields{"updated_slots": len(updates)}).Info("theme diamond prices updated")
		}
	}

	// Gold rate preference: operator override, then the rate the last full
	// run recorded in theme settings, then a live fetch.
	goldRate := env.Params.GoldRate
	if goldRate == nil {
		if raw, ok := settings[goldRateSetting]; ok && raw != "" {
			if rate, err := decimal.NewFromString(raw); err == nil && rate.IsPositive() {
				goldRate = &rate
			}
		}
	}
	if goldRate == nil {
		rate, err := env.Rates.GoldRate(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("fetch gold rate: %w", err)
		}
		goldRate = &rate
	}
	run.goldRate = goldRate

	products, _, err := fetchCatalog(ctx, env)
	if err != nil {
		return Result{}, fmt.Errorf("fetch catalog: %w", err)
	}

	changedTypes := make(map[string]struct{}, stones.Len())
	for _, name := range stones.Names() {
		changedTypes[name] = struct{}{}
	}
	affected := catalog.AffectedByStoneTypes(products, changedTypes)
	log.WithFields(logger.Fields{
		"products": len(products),
		"affected": len(affected),
	}).Info("catalog loaded")

	repricer := processor.NewRepricer(pricing.NewGoldCalculator(*goldRate, taxPct, stones), nil)
	out := repricer.Reprice(affected)

	prices, fields := dispatch(ctx, env, out)

	extra := []notifier.SummaryItem{
		{Label: "Updated Stone Types", Value: strings.Join(stones.Names(), ", ")},
		{Label: "Affected Products", Value: fmt.Sprintf("%d", len(affected))},
	}
	result := finishRun(ctx, env, run, out, prices, fields, extra)
	log.WithFields(logger.Fields{
		"changes": result.Changes,
		"failed":  result.Failed,
	}).Info("diamond price update finished")
	return result, nil
}

// resolveDiamondConfig picks the diamond price source for a run: manually
// supplied text when present, the numbered theme slots otherwise. The second
// return reports whether the prices came in manually and so must be written
// back to the theme.
func resolveDiamondConfig(text string, settings map[string]string) (*pricing.DiamondConfig, bool, error) {
	if text != "" {
		changed := pricing.ParseDiamondConfig(text)
		if changed.Len() == 0 {
			return nil, true, fmt.Errorf("DIAMOND_CONFIGS contained no usable stone prices")
		}
		return changed, true, nil
	}
	config := pricing.DiamondConfigFromSettings(settings)
	if config.Len() == 0 {
		return nil, false, fmt.Errorf("no diamond prices supplied and theme settings configure none")
	}
	return config, false, nil
}

const diamondSettingSlots = 20

// diamondSettingChanges maps manually supplied prices onto the theme's
// numbered diamond slots. Only the price of a slot whose configured name
// matches a supplied stone type changes; slot names stay as the merchant
// wrote them and unmatched types add no slots.
func diamondSettingChanges(settings map[string]string, changed *pricing.DiamondConfig) map[string]string {
	changes := make(map[string]string)
	for slot := 1; slot <= diamondSettingSlots; slot++ {
		name := strings.TrimSpace(settings[fmt.Sprintf("diamond_%d_name", slot)])
		if name == "" {
			continue
		}
		if price, ok := changed.Price(name); ok {
			changes[fmt.Sprintf("diamond_%d_price_per_carat", slot)] = price.String()
		}
	}
	return changes
}
