package processor

import (
	"goldflow/catalog"
	"goldflow/logger"
	"goldflow/models"
	"goldflow/pricing"
)

// Output is everything one reprice pass produces: the platform writes and
// the human readable change log, both in catalog order.
type Output struct {
	PriceUpdates     []models.VariantPriceUpdate
	MetafieldUpdates []models.MetafieldUpdate
	Details          []models.ChangeRecord
}

// Repricer walks a product list, classifies each product into a metal family
// and prices its variants with the matching calculator. A nil calculator
// means that family is out of scope for the run and its products are
// skipped, which is how a gold-only or silver-only run works.
type Repricer struct {
	gold   *pricing.GoldCalculator
	silver *pricing.SilverCalculator
	log    *logger.Log

	processed int
	skipped   int
}

func NewRepricer(gold *pricing.GoldCalculator, silver *pricing.SilverCalculator) *Repricer {
	return &Repricer{
		gold:   gold,
		silver: silver,
		log:    logger.GetLogger(),
	}
}

// Reprice computes new prices for every product it has a calculator for.
// Nothing here touches the platform; the caller decides what to do with the
// output.
func (r *Repricer) Reprice(products []models.Product) *Output {
	log := r.log.WithComponent("repricer")

	var out Output
	for _, product := range products {
		family := catalog.Classify(product)
		if catalog.IsGold(product) && catalog.IsSilver(product) {
			log.WithFields(logger.Fields{
				"product": product.Handle,
				"family":  family.String(),
			}).Warn("product matches both metal families, pricing as gold")
		}

		switch family {
		case catalog.FamilyGold:
			if r.gold == nil {
				r.skipped++
				continue
			}
			r.repriceGold(product, &out, log)
		case catalog.FamilySilver:
			if r.silver == nil {
				r.skipped++
				continue
			}
			r.repriceSilver(product, &out, log)
		default:
			r.skipped++
			log.WithFields(logger.Fields{"product": product.Handle}).Debug("product has no metal family, skipped")
			continue
		}
		r.processed++
	}

	log.WithFields(logger.Fields{
		"processed":         r.processed,
		"skipped":           r.skipped,
		"price_updates":     len(out.PriceUpdates),
		"metafield_updates": len(out.MetafieldUpdates),
	}).Info("reprice pass complete")
	logger.RecordFlowMessage("repricer", len(out.PriceUpdates))

	return &out
}

func (r *Repricer) repriceGold(product models.Product, out *Output, log *logger.Entry) {
	base := catalog.ProductAttributes(product)

	for _, variant := range product.Variants {
		attrs := catalog.VariantAttributes(variant, base)
		result := r.gold.Calculate(pricing.GoldInput{
			MetalWeight:         attrs.MetalWeight,
			Purity:              variant.Title,
			StoneCarats:         attrs.StoneCarats,
			StoneType:           attrs.StoneType,
			StonePricePerCarat:  attrs.StonePricePerCarat,
			MakingChargePct:     attrs.MakingChargePct,
			HallmarkingCharge:   attrs.Hallmarking,
			CertificationCharge: attrs.Certification,
			DiscountPct:         attrs.DiscountPct,
		})

		out.PriceUpdates = append(out.PriceUpdates, models.VariantPriceUpdate{
			ProductID:      product.ID,
			VariantID:      variant.ID,
			Price:          result.Price,
			CompareAtPrice: result.CompareAtPrice,
		})
		out.Details = append(out.Details, models.ChangeRecord{
			ProductTitle:   product.Title,
			VariantTitle:   variant.Title,
			OldPrice:       variant.Price,
			NewPrice:       result.Price.String(),
			CompareAtPrice: result.CompareAtPrice.String(),
			StoneType:      attrs.StoneType,
		})

		log.WithFields(logger.Fields{
			"product":   product.Handle,
			"variant":   variant.Title,
			"old_price": variant.Price,
			"new_price": result.Price.String(),
		}).Info("gold variant repriced")
	}

	out.MetafieldUpdates = append(out.MetafieldUpdates, models.MetafieldUpdate{
		ProductID: product.ID,
		Namespace: catalog.BookkeepingNamespace,
		Key:       catalog.KeyGoldRate,
		Value:     r.gold.Rate().String(),
		ValueType: catalog.RateValueType,
	})
}

func (r *Repricer) repriceSilver(product models.Product, out *Output, log *logger.Entry) {
	base := catalog.ProductAttributes(product)

	for _, variant := range product.Variants {
		attrs := catalog.VariantAttributes(variant, base)
		result := r.silver.Calculate(attrs.MetalWeight, attrs.StoneCarats)

		out.PriceUpdates = append(out.PriceUpdates, models.VariantPriceUpdate{
			ProductID:      product.ID,
			VariantID:      variant.ID,
			Price:          result.Price,
			CompareAtPrice: result.CompareAtPrice,
		})
		out.Details = append(out.Details, models.ChangeRecord{
			ProductTitle:   product.Title,
			VariantTitle:   variant.Title,
			OldPrice:       variant.Price,
			NewPrice:       result.Price.String(),
			CompareAtPrice: result.CompareAtPrice.String(),
			StoneType:      attrs.StoneType,
		})

		log.WithFields(logger.Fields{
			"product":   product.Handle,
			"variant":   variant.Title,
			"old_price": variant.Price,
			"new_price": result.Price.String(),
		}).Info("silver variant repriced")
	}

	out.MetafieldUpdates = append(out.MetafieldUpdates, models.MetafieldUpdate{
		ProductID: product.ID,
		Namespace: catalog.BookkeepingNamespace,
		Key:       catalog.KeySilverRate,
		Value:     r.silver.Rate().String(),
		ValueType: catalog.RateValueType,
	})
}

// Stats reports how many products the repricer processed and skipped.
func (r *Repricer) Stats() (processed, skipped int) {
	return r.processed, r.skipped
}
