package analysis_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"lectern/internal/analysis"
	"lectern/internal/config"
	"lectern/internal/extraction"
	"lectern/internal/transcribe"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...analysis.LLMOption) *analysis.LLMClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := config.LLM{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"}
	opts = append(opts, analysis.WithSleeper(func(time.Duration) {}))
	return analysis.NewLLMClient(cfg, opts...)
}

func completionBody(content string) string {
	encoded := strings.ReplaceAll(content, `\`, `\\`)
	encoded = strings.ReplaceAll(encoded, `"`, `\"`)
	encoded = strings.ReplaceAll(encoded, "\n", `\n`)
	return `{"choices":[{"message":{"content":"` + encoded + `"},"finish_reason":"stop"}]}`
}

func TestAnalyzeParsesStudyMaterial(t *testing.T) {
	payload := `{
        "summary": "An introduction to compilers covering lexing and parsing.",
        "topics": ["compilers", "parsing"],
        "key_concepts": [{"term": "Lexer", "definition": "Splits source text into tokens."}],
        "difficulty": "Intermediate",
        "study_notes": ["Lexing precedes parsing."]
    }`
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Write([]byte(completionBody(payload)))
	})
	analyzer := analysis.NewAnalyzer(client)

	result, err := analyzer.Analyze(context.Background(),
		&extraction.Metadata{Title: "Compilers 101", Channel: "CS Lectures", DurationSeconds: 1800},
		&transcribe.Transcript{Text: "today we talk about lexers and parsers"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Summary == "" || len(result.KeyConcepts) != 1 {
		t.Fatalf("unexpected analysis: %+v", result)
	}
	if result.Difficulty != "intermediate" {
		t.Fatalf("difficulty not normalized: %q", result.Difficulty)
	}
}

func TestAnalyzeRejectsEmptyTranscript(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected for empty transcript")
	})
	analyzer := analysis.NewAnalyzer(client)

	if _, err := analyzer.Analyze(context.Background(), nil, &transcribe.Transcript{Text: "  "}); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestCompleteJSONRetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(completionBody(`{"ok":true}`)))
	})

	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if !strings.Contains(content, `"ok"`) {
		t.Fatalf("unexpected content %q", content)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one retry, got %d calls", calls.Load())
	}
}

func TestCompleteJSONDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("4xx should not retry, got %d calls", calls.Load())
	}
}

func TestGenerateKnowledgeGraphDropsDanglingEdges(t *testing.T) {
	payload := `{
        "nodes": [{"id": "lexer", "label": "Lexer", "type": "concept"}, {"id": "parser", "label": "Parser", "type": "concept"}],
        "edges": [{"from": "lexer", "to": "parser", "relation": "feeds"}, {"from": "lexer", "to": "ghost", "relation": "haunts"}]
    }`
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(completionBody(payload)))
	})
	analyzer := analysis.NewAnalyzer(client)

	graph, err := analyzer.GenerateKnowledgeGraph(context.Background(), &analysis.ContentAnalysis{
		Summary:     "Compilers overview",
		KeyConcepts: []analysis.Concept{{Term: "Lexer", Definition: "tokens"}},
	})
	if err != nil {
		t.Fatalf("GenerateKnowledgeGraph: %v", err)
	}
	if len(graph.Nodes) != 2 {
		t.Fatalf("unexpected nodes: %+v", graph.Nodes)
	}
	if len(graph.Edges) != 1 || graph.Edges[0].To != "parser" {
		t.Fatalf("dangling edge not dropped: %+v", graph.Edges)
	}
}

func TestGenerateKnowledgeGraphSkipsWithoutConcepts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected without concepts")
	})
	analyzer := analysis.NewAnalyzer(client)

	graph, err := analyzer.GenerateKnowledgeGraph(context.Background(), &analysis.ContentAnalysis{Summary: "s"})
	if err != nil {
		t.Fatalf("GenerateKnowledgeGraph: %v", err)
	}
	if len(graph.Nodes) != 0 || len(graph.Edges) != 0 {
		t.Fatalf("expected empty graph, got %+v", graph)
	}
}

func TestDecodeLLMJSONHandlesCodeFences(t *testing.T) {
	var target struct {
		OK bool `json:"ok"`
	}
	cases := []string{
		`{"ok":true}`,
		"```json\n{\"ok\":true}\n```",
		"Here is the JSON you asked for: {\"ok\":true}",
	}
	for _, payload := range cases {
		target.OK = false
		if err := analysis.DecodeLLMJSON(payload, &target); err != nil {
			t.Fatalf("DecodeLLMJSON(%q): %v", payload, err)
		}
		if !target.OK {
			t.Fatalf("DecodeLLMJSON(%q): not decoded", payload)
		}
	}
	if err := analysis.DecodeLLMJSON("no json here", &target); err == nil {
		t.Fatal("expected error for non-JSON payload")
	}
}
