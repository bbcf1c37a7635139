package config

import "testing"

func TestLoadRunParams(t *testing.T) {
	t.Setenv("GOLD_RATE", "6123.45")
	t.Setenv("INCLUDE_HANDLES", "gold-ring, gold-pendant\nsilver-chain")
	t.Setenv("USE_THEME_SETTINGS", "false")

	params, err := LoadRunParams()
	if err != nil {
		t.Fatalf("LoadRunParams failed: %v", err)
	}
	if params.GoldRate == nil || params.GoldRate.String() != "6123.45" {
		t.Errorf("unexpected gold rate: %v", params.GoldRate)
	}
	if params.SilverRate != nil {
		t.Errorf("silver rate should be absent, got %v", params.SilverRate)
	}
	if len(params.IncludeHandles) != 3 {
		t.Errorf("unexpected include handles: %v", params.IncludeHandles)
	}
	if _, ok := params.IncludeHandles["silver-chain"]; !ok {
		t.Error("newline separated handle missing")
	}
	if params.UseThemeSettings {
		t.Error("USE_THEME_SETTINGS=false not honoured")
	}
}

func TestLoadRunParamsRejectsMalformedRate(t *testing.T) {
	t.Setenv("GOLD_RATE", "six thousand")
	if _, err := LoadRunParams(); err == nil {
		t.Fatal("expected error for malformed GOLD_RATE")
	}
}

func TestAppEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "")
	if env := AppEnvironment(); env != "development" {
		t.Errorf("default environment = %s, want development", env)
	}

	t.Setenv("APP_ENV", "PROD")
	if env := AppEnvironment(); env != "production" {
		t.Errorf("alias not normalised: %s", env)
	}
	if !IsProductionLike("production") || !IsProductionLike("staging") {
		t.Error("production and staging should be production like")
	}
	if IsProductionLike("development") {
		t.Error("development should not be production like")
	}
}

func TestParseHandles(t *testing.T) {
	handles := ParseHandles("a, b,\n c\n\n")
	if len(handles) != 3 {
		t.Fatalf("expected 3 handles, got %d: %v", len(handles), handles)
	}
	for _, h := range []string{"a", "b", "c"} {
		if _, ok := handles[h]; !ok {
			t.Errorf("handle %q missing", h)
		}
	}
}

func TestParseHandlesCaseFolds(t *testing.T) {
	handles := ParseHandles("Gold-Ring,SILVER-CHAIN")
	for _, h := range []string{"gold-ring", "silver-chain"} {
		if _, ok := handles[h]; !ok {
			t.Errorf("handle %q not folded: %v", h, handles)
		}
	}
	if len(handles) != 2 {
		t.Errorf("expected 2 handles, got %d", len(handles))
	}
}
