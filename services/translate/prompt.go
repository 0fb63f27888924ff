package translate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// langPair carries a request language code together with the human-readable
// name used inside prompts.
type langPair struct {
	Code string // e.g. "zh_HK"
	Name string // e.g. "Traditional Chinese"
}

func mapLanguages(cfg AppConfig, codes []string) []langPair {
	pairs := make([]langPair, 0, len(codes))
	for _, code := range codes {
		pairs = append(pairs, langPair{Code: code, Name: cfg.LanguageName(code)})
	}
	return pairs
}

func languageDisplay(pairs []langPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s (%s)", p.Name, p.Code))
	}
	return strings.Join(parts, ", ")
}

// formatExample is the per-text answer template the model must follow, one
// line per target language code.
func formatExample(pairs []langPair) string {
	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		lines = append(lines, fmt.Sprintf("   %s: [translation]", p.Code))
	}
	return strings.Join(lines, "\n")
}

func numberedList(texts []string) string {
	lines := make([]string, 0, len(texts))
	for i, t := range texts {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, t))
	}
	return strings.Join(lines, "\n")
}

// hardcodedHints renders the preferred-translation reference block for the
// prompt. Keys are sorted for a stable prompt.
func hardcodedHints(pairs []langPair, hardcoded map[string]map[string]string) string {
	var b strings.Builder
	for _, p := range pairs {
		perLang := hardcoded[p.Name]
		if len(perLang) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n\nFor %s, prefer these translations when applicable:\n", p.Code)

		keys := make([]string, 0, len(perLang))
		for k := range perLang {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- '%s' → '%s'\n", k, perLang[k])
		}
	}
	if b.Len() == 0 {
		return ""
	}
	b.WriteString("\nUse these preferred translations when the terms appear standalone or can be naturally incorporated.")
	return b.String()
}

// hongKongMainlandPair reports the one language combination that gets
// region-specific prompt instructions: English into exactly Traditional and
// Simplified Chinese.
func hongKongMainlandPair(sourceName string, pairs []langPair) bool {
	if sourceName != "English" {
		return false
	}
	names := map[string]struct{}{}
	for _, p := range pairs {
		names[p.Name] = struct{}{}
	}
	if len(names) != 2 {
		return false
	}
	_, trad := names["Traditional Chinese"]
	_, simp := names["Simplified Chinese"]
	return trad && simp
}

func regionInstructions(specific bool) []string {
	if specific {
		return []string{
			"For Traditional Chinese, use expressions and vocabulary as spoken and written by Cantonese speakers in Hong Kong.",
			"For Simplified Chinese, use expressions and vocabulary as spoken and written by Mainland China speakers.",
			"If it is appropriate, try to use similar sentence structure and vocabulary in both Traditional Chinese and Simplified Chinese translations, to maintain consistency and clarity across both versions.",
		}
	}
	return []string{
		"Use regionally appropriate vocabulary, expressions, and tone.",
	}
}

// firstPassPrompt builds the system prompt for the initial translation.
func firstPassPrompt(source langPair, targets []langPair, hints string) string {
	specific := hongKongMainlandPair(source.Name, targets)
	display := languageDisplay(targets)
	example := formatExample(targets)

	intro := fmt.Sprintf("You are a professional translator. Translate the following numbered list of texts from %s (%s) to each of these languages: %s.", source.Name, source.Code, display)
	if specific {
		intro = fmt.Sprintf("You are a professional translator. Translate the following numbered list of texts that appear on a website from %s (%s) to each of these languages: %s.", source.Name, source.Code, display)
	}

	lines := []string{
		intro,
		"Instructions:",
		"Use formal written language only, not spoken or colloquial forms.",
	}
	lines = append(lines, regionInstructions(specific)...)
	lines = append(lines,
		"Adapt meaning for clarity and naturalness in a web context; do not translate word-for-word.",
		fmt.Sprintf("For each numbered text, provide translations for all languages in this format:\n\n1. [Original text]\n%s\n\n2. [Next text]\n%s", example, example),
		fmt.Sprintf("Return ONLY the translations in this exact format without any explanations.%s", hints),
	)
	return strings.Join(lines, "\n")
}

// retranslatePrompt builds the system prompt for the second, improved pass.
func retranslatePrompt(source langPair, targets []langPair, hints string) string {
	specific := hongKongMainlandPair(source.Name, targets)
	display := languageDisplay(targets)
	example := formatExample(targets)

	intro := fmt.Sprintf("You are a professional translator. The previous translations for these website texts were not satisfactory. Translate the following numbered list of texts from %s (%s) to each of these languages: %s.", source.Name, source.Code, display)
	if specific {
		intro = fmt.Sprintf("You are a professional translator. The previous translations for these website texts were not satisfactory. Translate the following numbered list of texts that appear on a website from %s (%s) to each of these languages: %s.", source.Name, source.Code, display)
	}

	lines := []string{
		intro,
		"For each numbered text, you are given the original text and the first translation for each target language. Provide a different, better translation for each language.",
		"Instructions:",
		"DO NOT reuse the previous translations; provide NEW, improved translations.",
		"Use formal written language only, not spoken or colloquial forms.",
	}
	lines = append(lines, regionInstructions(specific)...)
	lines = append(lines,
		"Adapt meaning for clarity and naturalness in a web context; do not translate word-for-word.",
		fmt.Sprintf("For each numbered text, provide translations for all languages in this format:\n\n1. [Original text]\n%s\n\n2. [Next text]\n%s", example, example),
		fmt.Sprintf("Return ONLY the improved translations in this exact format without any explanations.%s", hints),
	)
	return strings.Join(lines, "\n")
}

// retranslateUserContent lists each text with its first-pass translations so
// the model can improve on them.
func retranslateUserContent(texts []string, targets []langPair, first map[string]map[string]string) string {
	var b strings.Builder
	for i, key := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, key)
		for _, p := range targets {
			fmt.Fprintf(&b, "   %s (first): %s\n", p.Code, first[p.Code][key])
		}
	}
	return b.String()
}

// parseTranslations decodes the numbered-list response format: one section
// per source text, one "code: translation" line per target language.
// Surrounding quotes are stripped, and a trailing period is dropped when the
// source text has none.
func parseTranslations(response string, texts []string, targets []langPair) map[string]map[string]string {
	out := make(map[string]map[string]string, len(targets))
	for _, p := range targets {
		out[p.Code] = map[string]string{}
	}

	sections := strings.Split(strings.TrimSpace(response), "\n\n")
	for i, key := range texts {
		if i >= len(sections) {
			break
		}
		lines := strings.Split(strings.TrimSpace(sections[i]), "\n")
		if len(lines) < 2 {
			continue
		}
		for _, line := range lines[1:] {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			for _, p := range targets {
				prefix := p.Code + ":"
				if !strings.HasPrefix(line, prefix) {
					continue
				}
				tr := strings.TrimSpace(line[len(prefix):])
				tr = stripMatchingQuotes(tr)
				if !strings.HasSuffix(key, ".") && strings.HasSuffix(tr, ".") {
					tr = strings.TrimRight(tr, ".")
				}
				out[p.Code][key] = tr
				break
			}
		}
	}

	return out
}

func stripMatchingQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

const validateSystemPrompt = "You are an expert in internationalization and localization. You help identify which text content in web applications should be translated for international users."

// validatePrompt asks the model to pick out the user-facing texts worth
// translating from a numbered list of strings scraped out of templates.
func validatePrompt(texts []string) string {
	return fmt.Sprintf(`You are reviewing text content found in a web application for translation purposes.

For each numbered text below, determine if it should be translated for international users or not.

SHOULD BE TRANSLATED:
- User-facing text content (buttons, labels, messages, descriptions, headings)
- Error messages and notifications that users see
- Complete sentences or phrases with semantic meaning that users will read
- Navigation text, menu items, form labels
- Standalone meaningful text without code context

SHOULD NOT BE TRANSLATED:
- CSS class names (like 'form-control', 'btn-primary', 'container-fluid', 'search-form')
- HTML attribute values (like 'off', 'text', 'email', 'submit', 'button')
- Database field names, API endpoints, or variable names
- File names
- Mixed code/text strings that contain PHP variables or functions (like "__('alt_prefix') . strip_tags($title)")
- Partial code snippets or incomplete programming constructs
- JavaScript class names or selectors
- Any text that appears to be part of code rather than user-facing content

CRITICAL RULES:
1. If text contains programming keywords like 'new', '__', 'HtmlString', function calls, or appears within code syntax, it should NOT be translated
2. If text looks like it was extracted from a line of code rather than standalone user content, it should NOT be translated
Respond with ONLY the numbers (separated by commas) of texts that SHOULD BE TRANSLATED.

If none should be translated, respond with 'NONE'.

Texts to review:
%s`, numberedList(texts))
}

// parseValidated decodes the validate response: "NONE", or a comma-separated
// list of 1-based indexes. An unparseable response keeps every text.
func parseValidated(response string, texts []string) []string {
	response = strings.TrimSpace(response)
	if strings.EqualFold(response, "NONE") {
		return []string{}
	}

	validated := []string{}
	for _, part := range strings.Split(response, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			// Parsing failed; keep everything rather than dropping texts.
			return append([]string{}, texts...)
		}
		if n >= 1 && n <= len(texts) {
			validated = append(validated, texts[n-1])
		}
	}
	return validated
}
