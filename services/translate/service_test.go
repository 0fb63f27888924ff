package translate

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ossira/launchkit/models"
)

// chatStub serves a canned chat-completions response and records the
// requests it saw.
type chatStub struct {
	t        *testing.T
	replies  []string
	requests []chatRequest
}

func (s *chatStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.t.Errorf("decode chat request: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.requests = append(s.requests, req)

		reply := ""
		if len(s.replies) > 0 {
			reply = s.replies[0]
			s.replies = s.replies[1:]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": reply}},
			},
		})
	})
}

func newTestService(t *testing.T, stub *chatStub) *Service {
	t.Helper()

	upstream := httptest.NewServer(stub.handler())
	t.Cleanup(upstream.Close)

	svc := NewService(testConfig(), nil)
	svc.newClient = func() (*ChatClient, error) {
		return &ChatClient{
			BaseURL:    upstream.URL,
			APIKey:     "test-key",
			httpClient: &http.Client{Timeout: 5 * time.Second},
		}, nil
	}
	return svc
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Raw = map[string]any{"target_languages": []any{"zh_HK"}}

	svc := NewService(cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out models.ConfigResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := out.Config["target_languages"]; !ok {
		t.Errorf("config echo missing target_languages: %v", out.Config)
	}
}

func TestHandleTranslate(t *testing.T) {
	stub := &chatStub{t: t, replies: []string{
		"1. Home\n   zh_HK: 首頁\n   zh_CN: 首页",
	}}
	svc := newTestService(t, stub)

	rec := postJSON(t, svc.Handler(), "/translate", models.TranslateRequest{
		Texts:           []string{"Home"},
		SourceLanguage:  "en",
		TargetLanguages: []string{"zh_HK", "zh_CN"},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var out models.TranslateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	want := map[string]map[string]string{
		"zh_HK": {"Home": "首頁"},
		"zh_CN": {"Home": "首页"},
	}
	if diff := cmp.Diff(want, out.Translations); diff != "" {
		t.Errorf("translations mismatch (-want +got):\n%s", diff)
	}

	if len(stub.requests) != 1 {
		t.Fatalf("upstream calls = %d, want 1", len(stub.requests))
	}
	got := stub.requests[0]
	if got.Model != defaultTranslateModel {
		t.Errorf("model = %q, want %q", got.Model, defaultTranslateModel)
	}
	if got.Temperature == nil || *got.Temperature != translateTemperature {
		t.Errorf("temperature = %v, want %v", got.Temperature, translateTemperature)
	}
}

func TestHandleTranslateRetranslate(t *testing.T) {
	stub := &chatStub{t: t, replies: []string{
		"1. Home\n   fr: Accueil",
		"1. Home\n   fr: Page d'accueil",
	}}
	svc := newTestService(t, stub)

	rec := postJSON(t, svc.Handler(), "/translate", models.TranslateRequest{
		Texts:           []string{"Home"},
		SourceLanguage:  "en",
		TargetLanguages: []string{"fr"},
		Retranslate:     true,
	})

	var out models.TranslateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if got := out.Translations["fr"]["Home"]; got != "Page d'accueil" {
		t.Errorf("retranslation = %q, want the second-pass result", got)
	}
	if len(stub.requests) != 2 {
		t.Fatalf("upstream calls = %d, want 2", len(stub.requests))
	}

	// The second pass must carry the first-pass result for the model to
	// improve on.
	second := stub.requests[1]
	userMsg := second.Messages[len(second.Messages)-1].Content
	if wantFragment := "fr (first): Accueil"; !bytes.Contains([]byte(userMsg), []byte(wantFragment)) {
		t.Errorf("retranslate user content missing %q:\n%s", wantFragment, userMsg)
	}
}

func TestHandleTranslateEmptyInput(t *testing.T) {
	svc := newTestService(t, &chatStub{t: t})

	rec := postJSON(t, svc.Handler(), "/translate", models.TranslateRequest{
		Texts:          []string{},
		SourceLanguage: "en",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out models.TranslateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Translations) != 0 {
		t.Errorf("empty input should yield empty translations, got %v", out.Translations)
	}
}

func TestHandleTranslateMissingAPIKey(t *testing.T) {
	svc := NewService(testConfig(), nil)
	t.Setenv("OPENAI_API_KEY", "")

	rec := postJSON(t, svc.Handler(), "/translate", models.TranslateRequest{
		Texts:           []string{"Home"},
		SourceLanguage:  "en",
		TargetLanguages: []string{"fr"},
	})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["detail"] == "" {
		t.Errorf("missing detail in error body: %s", rec.Body)
	}
}

func TestHandleTranslateUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(upstream.Close)

	svc := NewService(testConfig(), nil)
	svc.newClient = func() (*ChatClient, error) {
		return &ChatClient{
			BaseURL:    upstream.URL,
			APIKey:     "test-key",
			httpClient: &http.Client{Timeout: 5 * time.Second},
		}, nil
	}

	rec := postJSON(t, svc.Handler(), "/translate", models.TranslateRequest{
		Texts:           []string{"Home"},
		SourceLanguage:  "en",
		TargetLanguages: []string{"fr"},
	})

	// Upstream failure degrades to empty translations with the error set.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out models.TranslateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Error == nil {
		t.Fatal("want error in response, got none")
	}
	if got := out.Translations["fr"]["Home"]; got != "" {
		t.Errorf("failed call should yield empty translation, got %q", got)
	}
}

func TestHandleValidate(t *testing.T) {
	stub := &chatStub{t: t, replies: []string{"1, 3"}}
	svc := newTestService(t, stub)

	rec := postJSON(t, svc.Handler(), "/validate", models.ValidateRequest{
		Texts: []string{"Save", "btn-primary", "Welcome back"},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var out models.ValidateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	want := []string{"Save", "Welcome back"}
	if diff := cmp.Diff(want, out.Validated); diff != "" {
		t.Errorf("validated mismatch (-want +got):\n%s", diff)
	}

	if got := stub.requests[0].Model; got != defaultValidateModel {
		t.Errorf("model = %q, want %q", got, defaultValidateModel)
	}
	if tp := stub.requests[0].Temperature; tp == nil || *tp != validateTemperature {
		t.Errorf("temperature = %v, want %v", tp, validateTemperature)
	}
}

func TestTemperatureOmittedForGPT5(t *testing.T) {
	stub := &chatStub{t: t, replies: []string{"NONE"}}
	svc := newTestService(t, stub)

	model := "gpt-5-mini"
	rec := postJSON(t, svc.Handler(), "/validate", models.ValidateRequest{
		Texts:   []string{"Save"},
		AIModel: &model,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if tp := stub.requests[0].Temperature; tp != nil {
		t.Errorf("gpt-5 request carried temperature %v, want omitted", *tp)
	}
}
