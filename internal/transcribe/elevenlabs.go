package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const elevenLabsSTTEndpoint = "https://api.elevenlabs.io/v1/speech-to-text"

// ElevenLabsClient calls the ElevenLabs Speech-to-Text API. It is the
// language-specialized provider: for Indic languages the selector prefers it
// over every other backend when its credential is present.
type ElevenLabsClient struct {
	apiKey  string
	model   string // "scribe_v1" or "scribe_v2"
	timeout time.Duration
	client  *http.Client
}

// elevenlabsResponse is the JSON response from the ElevenLabs STT API.
type elevenlabsResponse struct {
	LanguageCode        string           `json:"language_code"`
	LanguageProbability float64          `json:"language_probability"`
	Text                string           `json:"text"`
	Words               []elevenlabsWord `json:"words"`
}

// elevenlabsWord is a word or spacing entry from ElevenLabs.
type elevenlabsWord struct {
	Text        string  `json:"text"`
	Type        string  `json:"type"` // "word" or "spacing"
	StartTimeMs float64 `json:"start_time_ms"`
	EndTimeMs   float64 `json:"end_time_ms"`
}

// NewElevenLabsClient creates a new ElevenLabs STT client.
func NewElevenLabsClient(apiKey, model string, timeout time.Duration) *ElevenLabsClient {
	return &ElevenLabsClient{
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (el *ElevenLabsClient) Name() string { return "elevenlabs" }

// Model returns the configured model identifier.
func (el *ElevenLabsClient) Model() string { return el.model }

// Transcribe sends an audio file to the ElevenLabs STT API and returns the
// result. Spacing entries are filtered out; word timestamps arrive in
// milliseconds and are converted to seconds.
func (el *ElevenLabsClient) Transcribe(ctx context.Context, audioPath string, opts Opts) (*Response, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	w.WriteField("model_id", el.model)

	lang := opts.Language
	if lang == "" {
		lang = "en"
	}
	w.WriteField("language_code", lang)
	w.WriteField("timestamps_granularity", "word")

	if keyterms := buildKeyterms(opts.Hotwords); keyterms != "" {
		w.WriteField("keyterms", keyterms)
	}

	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, elevenLabsSTTEndpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("xi-api-key", el.apiKey)

	resp, err := el.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result elevenlabsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var words []Word
	for _, ew := range result.Words {
		if ew.Type != "word" {
			continue
		}
		words = append(words, Word{
			Word:       ew.Text,
			Start:      ew.StartTimeMs / 1000.0,
			End:        ew.EndTimeMs / 1000.0,
			Confidence: result.LanguageProbability,
		})
	}

	return &Response{
		Text:     result.Text,
		Language: result.LanguageCode,
		Words:    words,
	}, nil
}

// buildKeyterms converts comma-separated hotwords into the JSON array of
// {"text": term} objects the ElevenLabs API accepts.
func buildKeyterms(hotwords string) string {
	var terms []string
	for _, t := range strings.Split(hotwords, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return ""
	}

	type keyterm struct {
		Text string `json:"text"`
	}
	arr := make([]keyterm, len(terms))
	for i, t := range terms {
		arr[i] = keyterm{Text: t}
	}
	b, _ := json.Marshal(arr)
	return string(b)
}
