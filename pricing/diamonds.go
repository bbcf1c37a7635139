package pricing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"goldflow/logger"
)

// DiamondConfig maps stone type names to a price per carat. Keys are stored
// case-folded in insertion order: when a label only partially matches, the
// first configured entry wins, so lookup results can depend on the order the
// source listed them. That mirrors how the theme settings slots behave and is
// an accepted ambiguity.
type DiamondConfig struct {
	names  []string
	prices map[string]decimal.Decimal
}

func NewDiamondConfig() *DiamondConfig {
	return &DiamondConfig{prices: make(map[string]decimal.Decimal)}
}

// Set adds or replaces the price for a stone type. Names are case-folded and
// trimmed; a replaced name keeps its original position.
func (c *DiamondConfig) Set(name string, price decimal.Decimal) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return
	}
	if _, exists := c.prices[key]; !exists {
		c.names = append(c.names, key)
	}
	c.prices[key] = price
}

// Len reports the number of configured stone types.
func (c *DiamondConfig) Len() int {
	return len(c.names)
}

// Names returns the configured stone type names in insertion order.
func (c *DiamondConfig) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Price returns the exact price for a configured stone type name.
func (c *DiamondConfig) Price(name string) (decimal.Decimal, bool) {
	price, ok := c.prices[strings.ToLower(strings.TrimSpace(name))]
	return price, ok
}

// PriceFor resolves the price per carat for a stone type label. An empty
// label or a label matching nothing yields the fallback. Resolution order:
// exact case-insensitive match, then the first configured name that is a
// substring of the label or of which the label is a substring.
func (c *DiamondConfig) PriceFor(label string, fallback decimal.Decimal) decimal.Decimal {
	folded := strings.ToLower(strings.TrimSpace(label))
	if folded == "" {
		return fallback
	}
	if price, ok := c.prices[folded]; ok {
		return price
	}
	for _, name := range c.names {
		if strings.Contains(folded, name) || strings.Contains(name, folded) {
			return c.prices[name]
		}
	}
	return fallback
}

const maxDiamondSlots = 20

// DiamondConfigFromSettings extracts the diamond configuration from theme
// settings. Slots are scanned in order as diamond_<i>_name /
// diamond_<i>_price_per_carat; the scan stops at the first slot with an
// empty name. An unparseable price is treated as zero.
func DiamondConfigFromSettings(settings map[string]string) *DiamondConfig {
	config := NewDiamondConfig()
	for i := 1; i <= maxDiamondSlots; i++ {
		name := strings.TrimSpace(settings[fmt.Sprintf("diamond_%d_name", i)])
		if name == "" {
			break
		}
		price, err := decimal.NewFromString(strings.TrimSpace(settings[fmt.Sprintf("diamond_%d_price_per_carat", i)]))
		if err != nil {
			price = decimal.Zero
		}
		config.Set(name, price)
	}
	return config
}

// ParseDiamondConfig parses manually supplied diamond prices. Two formats
// are supported: a JSON object like {"vvs1": 5000, "vs2": 3000} and comma
// separated key:value pairs like vvs1:5000,vs2:3000. Invalid pairs are
// logged and skipped, not fatal.
func ParseDiamondConfig(text string) *DiamondConfig {
	config := NewDiamondConfig()
	text = strings.TrimSpace(text)
	if text == "" {
		return config
	}

	if strings.HasPrefix(text, "{") {
		if parsed, ok := parseDiamondJSON(text); ok {
			return parsed
		}
		// Fall through to pair syntax like the operator probably meant.
	}

	log := logger.GetLogger().WithComponent("diamond_config")
	for _, pair := range strings.Split(text, ",") {
		name, value, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			log.WithFields(logger.Fields{"pair": strings.TrimSpace(pair)}).Warn("invalid diamond price value")
			continue
		}
		config.Set(name, price)
	}
	return config
}

// parseDiamondJSON decodes a JSON object token by token so the document
// order of keys is preserved; unmarshalling into a map would lose it.
func parseDiamondJSON(text string) (*DiamondConfig, bool) {
	config := NewDiamondConfig()
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, false
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, false
		}
		valTok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		var raw string
		switch v := valTok.(type) {
		case json.Number:
			raw = v.String()
		case string:
			raw = v
		default:
			return nil, false
		}
		price, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, false
		}
		config.Set(key, price)
	}
	return config, true
}
