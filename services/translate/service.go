package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ossira/launchkit/models"
)

const (
	defaultTranslateModel = "gpt-4.1-nano"
	defaultValidateModel  = "gpt-4o-mini"

	translateTemperature = 0.3
	validateTemperature  = 0.1
)

// Service is the translation application: the object the launch
// configuration's workers load. The chat client is constructed per request
// so a missing API key surfaces as a request error, not a boot failure.
type Service struct {
	cfg    AppConfig
	logger *slog.Logger

	// newClient is swappable in tests.
	newClient func() (*ChatClient, error)
}

func NewService(cfg AppConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:       cfg,
		logger:    logger,
		newClient: NewChatClientFromEnv,
	}
}

// Handler returns the statically bound application entry point the workers
// serve.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /config", s.handleConfig)
	mux.HandleFunc("POST /translate", s.handleTranslate)
	mux.HandleFunc("POST /validate", s.handleValidate)
	return mux
}

func (s *Service) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ConfigResponse{Config: s.cfg.Raw})
}

func (s *Service) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req models.TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if len(req.Texts) == 0 || len(req.TargetLanguages) == 0 {
		writeJSON(w, http.StatusOK, models.TranslateResponse{Translations: map[string]map[string]string{}})
		return
	}

	client, err := s.newClient()
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	model := defaultTranslateModel
	if req.AIModel != nil && *req.AIModel != "" {
		model = *req.AIModel
	}

	source := langPair{Code: req.SourceLanguage, Name: s.cfg.LanguageName(req.SourceLanguage)}
	targets := mapLanguages(s.cfg, req.TargetLanguages)
	hints := hardcodedHints(targets, req.HardcodedTranslations)

	translations, err := s.translate(r.Context(), client, model, source, targets, hints, req)
	if err != nil {
		// Best effort: empty translations for every key, error attached.
		s.logger.Error("translate failed", "model", model, "err", err)
		empty := make(map[string]map[string]string, len(targets))
		for _, p := range targets {
			empty[p.Code] = map[string]string{}
			for _, key := range req.Texts {
				empty[p.Code][key] = ""
			}
		}
		msg := err.Error()
		writeJSON(w, http.StatusOK, models.TranslateResponse{Translations: empty, Error: &msg})
		return
	}

	writeJSON(w, http.StatusOK, models.TranslateResponse{Translations: translations})
}

// translate runs the first pass and, when requested, the retranslation pass.
// The retranslation result replaces the first-pass result.
func (s *Service) translate(
	ctx context.Context,
	client *ChatClient,
	model string,
	source langPair,
	targets []langPair,
	hints string,
	req models.TranslateRequest) (map[string]map[string]string, error) {

	first, err := client.Complete(ctx, model, translateTemperature, []ChatMessage{
		{Role: "system", Content: firstPassPrompt(source, targets, hints)},
		{Role: "user", Content: numberedList(req.Texts)},
	})
	if err != nil {
		return nil, fmt.Errorf("first translation pass: %w", err)
	}
	translations := parseTranslations(first, req.Texts, targets)

	if !req.Retranslate {
		return translations, nil
	}

	prior := req.FirstTranslations
	if prior == nil {
		prior = translations
	}

	second, err := client.Complete(ctx, model, translateTemperature, []ChatMessage{
		{Role: "system", Content: retranslatePrompt(source, targets, hints)},
		{Role: "user", Content: retranslateUserContent(req.Texts, targets, prior)},
	})
	if err != nil {
		return nil, fmt.Errorf("retranslation pass: %w", err)
	}

	return parseTranslations(second, req.Texts, targets), nil
}

func (s *Service) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req models.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if len(req.Texts) == 0 {
		writeJSON(w, http.StatusOK, models.ValidateResponse{Validated: []string{}})
		return
	}

	client, err := s.newClient()
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	model := defaultValidateModel
	if req.AIModel != nil && *req.AIModel != "" {
		model = *req.AIModel
	}

	response, err := client.Complete(r.Context(), model, validateTemperature, []ChatMessage{
		{Role: "system", Content: validateSystemPrompt},
		{Role: "user", Content: validatePrompt(req.Texts)},
	})
	if err != nil {
		s.logger.Error("validate failed", "model", model, "err", err)
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("AI validation failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, models.ValidateResponse{Validated: parseValidated(response, req.Texts)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail mirrors the upstream framework's error body shape.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
