package translate

import (
	"encoding/json"
	"fmt"
	"os"
)

// AppConfig is the service configuration read from config.json next to the
// binary. The raw document is echoed back by GET /config; the language map
// resolves request language codes (e.g. "zh_HK") to the names used in
// prompts (e.g. "Traditional Chinese").
type AppConfig struct {
	Raw            map[string]any
	LangCodeToName map[string]string
}

// LoadAppConfig reads the config file. A missing file is not an error: the
// service runs with an empty config and untranslated language codes.
func LoadAppConfig(path string) (AppConfig, error) {
	cfg := AppConfig{
		Raw:            map[string]any{},
		LangCodeToName: map[string]string{},
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file %q: %w", path, err)
	}

	if err := json.Unmarshal(b, &cfg.Raw); err != nil {
		return cfg, fmt.Errorf("parse config json %q: %w", path, err)
	}

	if m, ok := cfg.Raw["LANG_CODE_TO_NAME"].(map[string]any); ok {
		for code, v := range m {
			if name, ok := v.(string); ok {
				cfg.LangCodeToName[code] = name
			}
		}
	}

	return cfg, nil
}

// LanguageName resolves a language code, falling back to the code itself.
func (c AppConfig) LanguageName(code string) string {
	if name, ok := c.LangCodeToName[code]; ok {
		return name
	}
	return code
}
