package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"goldflow/logger"
)

const settingsAssetKey = "config/settings_data.json"

type themesResponse struct {
	Themes []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Role string `json:"role"`
	} `json:"themes"`
}

type assetResponse struct {
	Asset struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"asset"`
}

// resolveThemeID returns the configured theme ID, or discovers the published
// theme when none is configured.
func (c *Client) resolveThemeID(ctx context.Context) (int64, error) {
	if c.themeID != 0 {
		return c.themeID, nil
	}

	var themes themesResponse
	if err := c.rest(ctx, "GET", "/themes.json", nil, &themes); err != nil {
		return 0, fmt.Errorf("list themes: %w", err)
	}
	for _, theme := range themes.Themes {
		if theme.Role == "main" {
			c.themeID = theme.ID
			c.log.WithComponent("shopify_client").WithFields(logger.Fields{
				"theme_id":   theme.ID,
				"theme_name": theme.Name,
			}).Info("resolved published theme")
			return theme.ID, nil
		}
	}
	return 0, fmt.Errorf("no published theme found")
}

// GetSettings fetches the theme's settings_data.json and flattens the current
// settings into string values. Numbers keep their exact textual form so a
// price read from settings round-trips without float noise.
func (c *Client) GetSettings(ctx context.Context) (map[string]string, error) {
	current, _, err := c.fetchCurrentSettings(ctx)
	if err != nil {
		return nil, err
	}

	settings := make(map[string]string, len(current))
	for key, value := range current {
		settings[key] = settingToString(value)
	}
	return settings, nil
}

// UpdateSettings merges the given keys into the theme's current settings and
// writes the asset back. Values that parse as numbers are stored as JSON
// numbers, everything else as strings.
func (c *Client) UpdateSettings(ctx context.Context, changes map[string]string) error {
	if len(changes) == 0 {
		return nil
	}

	current, document, err := c.fetchCurrentSettings(ctx)
	if err != nil {
		return err
	}

	for key, value := range changes {
		if number, err := strconv.ParseFloat(value, 64); err == nil {
			current[key] = json.Number(strconv.FormatFloat(number, 'f', -1, 64))
		} else {
			current[key] = value
		}
	}
	document["current"] = current

	value, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	body, err := json.Marshal(map[string]any{
		"asset": map[string]string{"key": settingsAssetKey, "value": string(value)},
	})
	if err != nil {
		return err
	}

	themeID, err := c.resolveThemeID(ctx)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/themes/%d/assets.json", themeID)
	if err := c.rest(ctx, "PUT", path, body, nil); err != nil {
		return fmt.Errorf("write theme settings: %w", err)
	}

	c.log.WithComponent("shopify_client").WithFields(logger.Fields{
		"keys": len(changes),
	}).Info("theme settings updated")
	return nil
}

// fetchCurrentSettings returns the decoded "current" settings map along with
// the full settings document, so an update can write back the untouched parts
// (presets and platform bookkeeping) unchanged.
func (c *Client) fetchCurrentSettings(ctx context.Context) (map[string]any, map[string]any, error) {
	themeID, err := c.resolveThemeID(ctx)
	if err != nil {
		return nil, nil, err
	}

	path := fmt.Sprintf("/themes/%d/assets.json?asset[key]=%s", themeID, url.QueryEscape(settingsAssetKey))
	var asset assetResponse
	if err := c.rest(ctx, "GET", path, nil, &asset); err != nil {
		return nil, nil, fmt.Errorf("fetch theme settings: %w", err)
	}

	var document map[string]any
	decoder := json.NewDecoder(strings.NewReader(asset.Asset.Value))
	decoder.UseNumber()
	if err := decoder.Decode(&document); err != nil {
		return nil, nil, fmt.Errorf("decode settings asset: %w", err)
	}

	current, ok := document["current"].(map[string]any)
	if !ok {
		// "current" may be a preset name referencing the presets block.
		if name, isName := document["current"].(string); isName {
			if presets, hasPresets := document["presets"].(map[string]any); hasPresets {
				if preset, hasPreset := presets[name].(map[string]any); hasPreset {
					return preset, document, nil
				}
			}
		}
		return nil, nil, fmt.Errorf("settings asset has no current section")
	}
	return current, document, nil
}

func settingToString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
