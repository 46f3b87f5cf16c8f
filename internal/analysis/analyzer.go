package analysis

import (
	"context"
	"fmt"
	"strings"

	"lectern/internal/extraction"
	"lectern/internal/services"
	"lectern/internal/transcribe"
)

// Transcripts longer than this are truncated before prompting so requests
// stay inside model context windows.
const maxTranscriptChars = 48000

// Concept is one term a student should learn from the material.
type Concept struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// ContentAnalysis is the structured study material produced from a transcript.
type ContentAnalysis struct {
	Summary     string    `json:"summary"`
	Topics      []string  `json:"topics"`
	KeyConcepts []Concept `json:"key_concepts"`
	Difficulty  string    `json:"difficulty"`
	StudyNotes  []string  `json:"study_notes"`
}

// GraphNode is one vertex of the concept map.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// GraphEdge connects two concepts with a labeled relation.
type GraphEdge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Relation string `json:"relation"`
}

// KnowledgeGraph is the concept map linking the analyzed material together.
type KnowledgeGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Analyzer runs the LLM-backed analysis stages.
type Analyzer struct {
	llm *LLMClient
}

// NewAnalyzer wraps an LLM client.
func NewAnalyzer(llm *LLMClient) *Analyzer {
	return &Analyzer{llm: llm}
}

// Analyze distills the transcript into structured study material.
func (a *Analyzer) Analyze(ctx context.Context, meta *extraction.Metadata, transcript *transcribe.Transcript) (*ContentAnalysis, error) {
	if transcript == nil || strings.TrimSpace(transcript.Text) == "" {
		return nil, services.Wrap(services.ErrEmptyAudio, "analyze_content", "analyze", "transcript is empty", nil)
	}

	var prompt strings.Builder
	if meta != nil {
		fmt.Fprintf(&prompt, "Title: %s\n", meta.Title)
		if meta.Channel != "" {
			fmt.Fprintf(&prompt, "Channel: %s\n", meta.Channel)
		}
		if meta.DurationSeconds > 0 {
			fmt.Fprintf(&prompt, "Duration: %.0f seconds\n", meta.DurationSeconds)
		}
	}
	prompt.WriteString("\nTranscript:\n")
	prompt.WriteString(truncateTranscript(transcript.Text))

	content, err := a.llm.CompleteJSON(ctx, ContentAnalysisPrompt, prompt.String())
	if err != nil {
		return nil, services.Wrap(services.ErrProviderUnavailable, "analyze_content", "analyze", "llm request failed", err)
	}

	var parsed ContentAnalysis
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return nil, services.Wrap(services.ErrUnsupportedFormat, "analyze_content", "analyze", "parse analysis payload", err)
	}
	parsed.normalize()
	if parsed.Summary == "" {
		return nil, services.Wrap(services.ErrUnsupportedFormat, "analyze_content", "analyze", "analysis has no summary", nil)
	}
	return &parsed, nil
}

// GenerateKnowledgeGraph connects the analyzed concepts into a graph. Edges
// referencing unknown node ids are dropped.
func (a *Analyzer) GenerateKnowledgeGraph(ctx context.Context, analysis *ContentAnalysis) (*KnowledgeGraph, error) {
	if analysis == nil || len(analysis.KeyConcepts) == 0 {
		return &KnowledgeGraph{}, nil
	}

	var prompt strings.Builder
	prompt.WriteString("Summary:\n")
	prompt.WriteString(analysis.Summary)
	prompt.WriteString("\n\nKey concepts:\n")
	for _, concept := range analysis.KeyConcepts {
		fmt.Fprintf(&prompt, "- %s: %s\n", concept.Term, concept.Definition)
	}

	content, err := a.llm.CompleteJSON(ctx, KnowledgeGraphPrompt, prompt.String())
	if err != nil {
		return nil, services.Wrap(services.ErrProviderUnavailable, "generate_knowledge_graph", "generate", "llm request failed", err)
	}

	var graph KnowledgeGraph
	if err := DecodeLLMJSON(content, &graph); err != nil {
		return nil, services.Wrap(services.ErrUnsupportedFormat, "generate_knowledge_graph", "generate", "parse graph payload", err)
	}
	graph.prune()
	return &graph, nil
}

func (c *ContentAnalysis) normalize() {
	c.Summary = strings.TrimSpace(c.Summary)
	c.Difficulty = strings.ToLower(strings.TrimSpace(c.Difficulty))
	switch c.Difficulty {
	case "beginner", "intermediate", "advanced":
	default:
		c.Difficulty = ""
	}
	topics := c.Topics[:0]
	for _, topic := range c.Topics {
		if trimmed := strings.TrimSpace(topic); trimmed != "" {
			topics = append(topics, trimmed)
		}
	}
	c.Topics = topics
	concepts := c.KeyConcepts[:0]
	for _, concept := range c.KeyConcepts {
		concept.Term = strings.TrimSpace(concept.Term)
		concept.Definition = strings.TrimSpace(concept.Definition)
		if concept.Term != "" {
			concepts = append(concepts, concept)
		}
	}
	c.KeyConcepts = concepts
}

func (g *KnowledgeGraph) prune() {
	known := make(map[string]struct{}, len(g.Nodes))
	nodes := g.Nodes[:0]
	for _, node := range g.Nodes {
		node.ID = strings.TrimSpace(node.ID)
		if node.ID == "" {
			continue
		}
		if _, dup := known[node.ID]; dup {
			continue
		}
		known[node.ID] = struct{}{}
		nodes = append(nodes, node)
	}
	g.Nodes = nodes

	edges := g.Edges[:0]
	for _, edge := range g.Edges {
		if _, ok := known[edge.From]; !ok {
			continue
		}
		if _, ok := known[edge.To]; !ok {
			continue
		}
		edges = append(edges, edge)
	}
	g.Edges = edges
}

func truncateTranscript(text string) string {
	if len(text) <= maxTranscriptChars {
		return text
	}
	cut := text[:maxTranscriptChars]
	if idx := strings.LastIndexByte(cut, ' '); idx > maxTranscriptChars/2 {
		cut = cut[:idx]
	}
	return cut + "\n[transcript truncated]"
}
