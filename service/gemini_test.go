package service

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"
)

func TestAssembleAnalysisKeepsVerbatimTranscription(t *testing.T) {
	transcription := strings.Repeat("Aos vinte dias do mês de março, perante mim, tabelião... ", 50)

	// The reasoning model echoes rawText at varying truncation lengths; the
	// assembled result must always carry the full transcription.
	for _, echoLen := range []int{0, 1, 10, 100, len(transcription) / 2, len(transcription)} {
		payload, err := json.Marshal(map[string]any{
			"rawText":      transcription[:echoLen],
			"summary":      "Escritura lavrada em tabelionato",
			"documentType": "Escritura Pública",
		})
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}

		result, err := assembleAnalysis(transcription, string(payload))
		if err != nil {
			t.Fatalf("assembleAnalysis with echo length %d failed: %v", echoLen, err)
		}
		if result.RawText != transcription {
			t.Errorf("Expected rawText to equal the transcription for echo length %d", echoLen)
		}
	}
}

func TestAssembleAnalysisDefaultsMissingArrays(t *testing.T) {
	payload := `{"summary": "Procuração simples", "documentType": "Procuração"}`

	result, err := assembleAnalysis("texto original", payload)
	if err != nil {
		t.Fatalf("assembleAnalysis failed: %v", err)
	}

	if result.Parties == nil || len(result.Parties) != 0 {
		t.Error("Expected parties to default to an empty slice")
	}
	if result.Dates == nil || len(result.Dates) != 0 {
		t.Error("Expected dates to default to an empty slice")
	}
	if result.MissingRequirements == nil || len(result.MissingRequirements) != 0 {
		t.Error("Expected missingRequirements to default to an empty slice")
	}
	if result.RiskFactors == nil || len(result.RiskFactors) != 0 {
		t.Error("Expected riskFactors to default to an empty slice")
	}
}

func TestAssembleAnalysisStripsCodeFence(t *testing.T) {
	payload := "```json\n{\"summary\": \"ok\", \"documentType\": \"Contrato\"}\n```"

	result, err := assembleAnalysis("texto", payload)
	if err != nil {
		t.Fatalf("assembleAnalysis failed: %v", err)
	}
	if result.DocumentType != "Contrato" {
		t.Errorf("Expected documentType Contrato, got %s", result.DocumentType)
	}
}

func TestAssembleAnalysisRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty", ""},
		{"whitespace", "   \n  "},
		{"not json", "desculpe, não consegui analisar"},
		{"missing required fields", `{"rawText": "x"}`},
		{"wrong severity", `{"summary": "s", "documentType": "d", "riskFactors": [{"severity": "CRITICAL", "description": "x"}]}`},
		{"risk factor without description", `{"summary": "s", "documentType": "d", "riskFactors": [{"severity": "HIGH"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := assembleAnalysis("texto", tt.payload); !errors.Is(err, ErrAnalysisParse) {
				t.Errorf("Expected ErrAnalysisParse, got %v", err)
			}
		})
	}
}

func TestAssembleAnalysisNormalizesSeverity(t *testing.T) {
	payload := `{
		"summary": "s",
		"documentType": "d",
		"riskFactors": [
			{"severity": "HIGH", "description": "falta reconhecimento de firma", "location": "cláusula 3ª"},
			{"severity": "LOW", "description": "data por extenso divergente"}
		]
	}`

	result, err := assembleAnalysis("texto", payload)
	if err != nil {
		t.Fatalf("assembleAnalysis failed: %v", err)
	}
	if !result.HasHighRisk() {
		t.Error("Expected a HIGH severity finding to flag high risk")
	}
	if result.RiskFactors[1].Location != "" {
		t.Errorf("Expected empty location to stay empty, got %q", result.RiskFactors[1].Location)
	}
}

func TestTruncateChars(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"under budget", "abc", 10, "abc"},
		{"exact budget", "abcde", 5, "abcde"},
		{"over budget", "abcdef", 3, "abc"},
		{"unlimited", "abcdef", 0, "abcdef"},
		{"multibyte boundary", "cartório", 5, "cart"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateChars(tt.in, tt.max); got != tt.want {
				t.Errorf("truncateChars(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{{Text: "primeira parte "}, {Text: "segunda parte"}},
				},
			},
		},
	}

	if got := responseText(resp); got != "primeira parte segunda parte" {
		t.Errorf("Unexpected response text: %q", got)
	}

	if got := responseText(nil); got != "" {
		t.Errorf("Expected empty text for nil response, got %q", got)
	}
	if got := responseText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("Expected empty text for response without candidates, got %q", got)
	}
}

func TestCitedSourcesFiltersUnresolvable(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				GroundingMetadata: &genai.GroundingMetadata{
					GroundingChunks: []*genai.GroundingChunk{
						{Web: &genai.GroundingChunkWeb{Title: "Código Civil, art. 215", URI: "https://example.com/cc-215"}},
						{Web: &genai.GroundingChunkWeb{Title: "", URI: "https://example.com/sem-titulo"}},
						{Web: &genai.GroundingChunkWeb{Title: "Sem URI", URI: ""}},
						{Web: nil}, // retrieved-context chunk, not a web source
						nil,
						{Web: &genai.GroundingChunkWeb{Title: "Código Civil, art. 215", URI: "https://example.com/cc-215"}}, // duplicate
						{Web: &genai.GroundingChunkWeb{Title: "Provimento CNJ 100/2020", URI: "https://example.com/cnj-100"}},
					},
				},
			},
		},
	}

	sources := citedSources(resp)
	if len(sources) != 2 {
		t.Fatalf("Expected 2 resolvable sources, got %d", len(sources))
	}
	if sources[0].URI != "https://example.com/cc-215" || sources[1].URI != "https://example.com/cnj-100" {
		t.Errorf("Unexpected sources: %+v", sources)
	}
	if sources[0].Title != "Código Civil, art. 215" {
		t.Errorf("Unexpected first title: %q", sources[0].Title)
	}
}

func TestCitedSourcesEmptyMetadata(t *testing.T) {
	// No grounding metadata is a valid, inconclusive answer
	sources := citedSources(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{}},
	})
	if sources == nil {
		t.Fatal("Expected non-nil sources slice")
	}
	if len(sources) != 0 {
		t.Errorf("Expected no sources, got %d", len(sources))
	}
}

func TestGenerationConfigsPerOperation(t *testing.T) {
	research := researchGenerationConfig()
	if len(research.Tools) != 1 || research.Tools[0].GoogleSearch == nil {
		t.Error("Expected the research configuration to carry the Google Search tool")
	}

	// Transcription and analysis must not search the web
	if visionGenerationConfig().Tools != nil || analysisGenerationConfig().Tools != nil {
		t.Error("Expected transcription and analysis configurations to carry no tools")
	}

	analysis := analysisGenerationConfig()
	if analysis.ResponseMIMEType != "application/json" || analysis.ResponseSchema == nil {
		t.Error("Expected the analysis configuration to force the structured JSON shape")
	}
}

func TestBuildAnalysisPromptEmbedsDocument(t *testing.T) {
	prompt := buildAnalysisPrompt("TEXTO DO DOCUMENTO")
	if !strings.Contains(prompt, "TEXTO DO DOCUMENTO") {
		t.Error("Expected prompt to contain the document text")
	}
	if !strings.Contains(prompt, "riskFactors") {
		t.Error("Expected prompt to describe the requested JSON shape")
	}
}

func TestBuildResearchPromptOmitsEmptyContext(t *testing.T) {
	with := buildResearchPrompt("qual o prazo?", "trecho do documento")
	if !strings.Contains(with, "trecho do documento") {
		t.Error("Expected prompt to embed the context excerpt")
	}

	without := buildResearchPrompt("qual o prazo?", "")
	if strings.Contains(without, "Contexto") {
		t.Error("Expected no context section for an empty excerpt")
	}
}
