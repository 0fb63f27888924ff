package translate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	body := `{
		"LANG_CODE_TO_NAME": {"zh_HK": "Traditional Chinese", "zh_CN": "Simplified Chinese"},
		"target_languages": ["zh_HK", "zh_CN"]
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("LoadAppConfig: %v", err)
	}

	if got := cfg.LanguageName("zh_HK"); got != "Traditional Chinese" {
		t.Errorf("LanguageName(zh_HK) = %q", got)
	}
	if got := cfg.LanguageName("xx"); got != "xx" {
		t.Errorf("unknown code should fall back to itself, got %q", got)
	}
	if _, ok := cfg.Raw["target_languages"]; !ok {
		t.Error("raw config not preserved")
	}
}

func TestLoadAppConfigMissingFile(t *testing.T) {
	cfg, err := LoadAppConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing config file must not be an error, got %v", err)
	}
	if len(cfg.Raw) != 0 {
		t.Errorf("missing file should give empty config, got %v", cfg.Raw)
	}
}

func TestLoadAppConfigBadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadAppConfig(path); err == nil {
		t.Fatal("malformed config: want error, got nil")
	}
}
