package models

// TranslateRequest is the batch translation request body. Texts are UI
// strings; hardcoded translations are preferred renderings keyed by target
// language then source text.
type TranslateRequest struct {
	Texts                 []string                     `json:"texts"`
	SourceLanguage        string                       `json:"source_language"`
	TargetLanguages       []string                     `json:"target_languages"`
	AIModel               *string                      `json:"ai_model,omitempty"`
	HardcodedTranslations map[string]map[string]string `json:"hardcoded_translations,omitempty"`

	// Retranslate requests a second, improved pass. FirstTranslations carries
	// the unsatisfactory first-pass results, keyed by language then text.
	Retranslate       bool                         `json:"retranslate,omitempty"`
	FirstTranslations map[string]map[string]string `json:"first_translations,omitempty"`
}

// TranslateResponse maps target language -> source text -> translation.
// Error is set (with best-effort empty translations) when the upstream model
// call fails.
type TranslateResponse struct {
	Translations map[string]map[string]string `json:"translations"`
	Error        *string                      `json:"error,omitempty"`
}

type ValidateRequest struct {
	Texts   []string `json:"texts"`
	AIModel *string  `json:"ai_model,omitempty"`
}

// ValidateResponse lists the subset of the submitted texts that should be
// translated for international users.
type ValidateResponse struct {
	Validated []string `json:"validated"`
}

type ConfigResponse struct {
	Config map[string]any `json:"config"`
}
