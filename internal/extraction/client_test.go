package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"freightdesk/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func completion(content string) string {
	blob, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": content}}},
	})
	return string(blob)
}

func testConfig() config.Config {
	cfg, _ := config.Load()
	cfg.ExtractAPIKey = "test"
	cfg.ExtractAPIBaseURL = "https://example.test/v1/"
	cfg.ExtractModel = "deepseek-chat"
	cfg.ExtractRateLimitRPS = 1000
	cfg.ExtractMaxAttempts = 4
	cfg.ExtractMaxInputChars = 0
	return cfg
}

func TestExtractInvoiceWithRetry(t *testing.T) {
	attempt := 0
	requestIDs := map[string]bool{}
	client := NewClient(testConfig(), nil)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			requestIDs[r.Header.Get("X-Request-Id")] = true
			if r.URL.Path != "/v1/chat/completions" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test" {
				t.Fatalf("authorization %q", got)
			}
			attempt++
			if attempt == 1 {
				return jsonResponse(http.StatusInternalServerError, `{"error":"boom"}`), nil
			}
			var req openai.ChatCompletionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatal(err)
			}
			if req.Model != "deepseek-chat" || len(req.Messages) != 2 {
				t.Fatalf("unexpected request %+v", req)
			}
			if !strings.Contains(req.Messages[1].Content, "INVOICE NO S2511") {
				t.Fatalf("document text missing from prompt")
			}
			return jsonResponse(http.StatusOK, completion("```json\n{\"InvoiceNo\":\"S2511SED01\",\"XUSD\":2,\"HBL\":null}\n```")), nil
		}),
	}

	lines, err := client.ExtractInvoice(context.Background(), "INVOICE NO S2511SED01")
	if err != nil {
		t.Fatal(err)
	}
	if attempt != 2 {
		t.Fatalf("attempts=%d", attempt)
	}
	if len(requestIDs) != 1 || requestIDs[""] {
		t.Fatalf("retries should share one request id, got %v", requestIDs)
	}
	if len(lines) != 1 {
		t.Fatalf("len=%d", len(lines))
	}
	if got := lines[0].Get(FieldInvoiceNo); got != "S2511SED01" {
		t.Fatalf("invoice no %q", got)
	}
	if got := lines[0].Get(FieldQuantity); got != "2" {
		t.Fatalf("quantity %q", got)
	}
	if got := lines[0].Get(FieldHBL); got != "" {
		t.Fatalf("hbl %q", got)
	}
}

func TestExtractInvoiceClientError(t *testing.T) {
	attempt := 0
	client := NewClient(testConfig(), nil)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempt++
			return jsonResponse(http.StatusUnauthorized, `{"error":"bad key"}`), nil
		}),
	}
	if _, err := client.ExtractInvoice(context.Background(), "text"); err == nil {
		t.Fatalf("expected error")
	}
	if attempt != 1 {
		t.Fatalf("4xx must not be retried, attempts=%d", attempt)
	}
}

func TestExtractInvoiceRetriesTransportError(t *testing.T) {
	attempt := 0
	client := NewClient(testConfig(), nil)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempt++
			if attempt == 1 {
				return nil, errors.New("connection reset")
			}
			return jsonResponse(http.StatusOK, completion(`[{"InvoiceNo":"B1"}]`)), nil
		}),
	}
	lines, err := client.ExtractInvoice(context.Background(), "INVOICE B1")
	if err != nil {
		t.Fatal(err)
	}
	if attempt != 2 || len(lines) != 1 || lines[0].Get(FieldInvoiceNo) != "B1" {
		t.Fatalf("attempts=%d lines=%+v", attempt, lines)
	}
}

func TestExtractInvoiceGivesUpAfterMaxAttempts(t *testing.T) {
	cfg := testConfig()
	cfg.ExtractMaxAttempts = 2
	attempt := 0
	client := NewClient(cfg, nil)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempt++
			return jsonResponse(http.StatusServiceUnavailable, `{"error":{"message":"busy"}}`), nil
		}),
	}
	_, err := client.ExtractInvoice(context.Background(), "text")
	if err == nil || attempt != 2 {
		t.Fatalf("attempts=%d err=%v", attempt, err)
	}
	if statusOf(err) != http.StatusServiceUnavailable {
		t.Fatalf("status lost from %v", err)
	}
}

func TestExtractInvoiceMissingKey(t *testing.T) {
	cfg := testConfig()
	cfg.ExtractAPIKey = ""
	client := NewClient(cfg, nil)
	if _, err := client.ExtractInvoice(context.Background(), "text"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("got %v", err)
	}
	lines, err := client.ExtractInvoice(context.Background(), "   ")
	if err != nil || lines != nil {
		t.Fatalf("blank text should be a no-op, got %v %v", lines, err)
	}
}

func TestParseLines(t *testing.T) {
	lines, err := ParseLines(`[{"InvoiceNo":"A","USD":"100.00"},{"InvoiceNo":"A","USD":50.5}]`)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[1].Get(FieldAmount) != "50.5" {
		t.Fatalf("got %+v", lines)
	}

	for _, bad := range []string{"", "```\n```", `"just text"`, `[{"InvoiceNo":{"nested":true}}]`, `[1,2]`} {
		if _, err := ParseLines(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
