package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"google.golang.org/genai"

	"github.com/noniixxxds/cartorio-teste-final/config"
	"github.com/noniixxxds/cartorio-teste-final/model"
)

// --- Transcription prompts ---
const transcriptionSystemPrompt = "Você é um transcritor de documentos de cartório. Sua única tarefa é transcrever fielmente o texto de documentos digitalizados, sem interpretar, resumir ou corrigir nada."
const transcriptionUserPrompt = `Transcreva integralmente o texto deste documento digitalizado.

Siga estas regras:
1. Preserve a estrutura original: parágrafos, cláusulas, numeração e quebras de linha.
2. Represente carimbos, selos, assinaturas e trechos ilegíveis entre colchetes, por exemplo: [CARIMBO], [SELO], [ASSINATURA], [ILEGÍVEL].
3. Não resuma, não traduza, não corrija ortografia e não omita nada.
4. Retorne apenas o texto transcrito, sem comentários ou preâmbulos.`

// --- Analysis prompts ---
const analysisSystemPrompt = "Você é um assistente jurídico especializado em atos notariais e registrais de um cartório brasileiro. Responda sempre com um único objeto JSON válido, exatamente no formato solicitado, em português."

// --- Research prompts ---
const researchSystemPrompt = "Você é um assistente de pesquisa jurídica de um cartório brasileiro. Responda em português, de forma objetiva e fundamentada, usando a busca para embasar a resposta quando possível."

// GeminiService implements Intelligence against the Gemini API on Vertex AI.
// One pre-built request configuration per operation: the transcription call
// is multimodal, the analysis call is constrained to the structured JSON
// shape, and the research call carries the Google Search grounding tool.
type GeminiService struct {
	client *genai.Client
	limits *config.LimitsConfig

	visionModel   string
	analysisModel string
	researchModel string

	visionConfig   *genai.GenerateContentConfig
	analysisConfig *genai.GenerateContentConfig
	researchConfig *genai.GenerateContentConfig
}

// NewGeminiService creates the Gemini client and the per-operation request
// configurations. The GCP project credential is resolved once here; without
// it the whole pipeline is unusable, so this fails startup.
func NewGeminiService(ctx context.Context, cfg *config.GeminiConfig, limits *config.LimitsConfig) (*GeminiService, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("gemini: project id is required (set GOOGLE_CLOUD_PROJECT or gemini.project_id)")
	}

	// Application Default Credentials pick the key file up from the
	// environment; export it when it only came from the yaml config.
	if cfg.CredentialsFile != "" {
		if err := os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("gemini: exporting credentials file: %w", err)
		}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.ProjectID,
		Location: cfg.Region,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	return &GeminiService{
		client:         client,
		limits:         limits,
		visionModel:    cfg.VisionModel,
		analysisModel:  cfg.AnalysisModel,
		researchModel:  cfg.ResearchModel,
		visionConfig:   visionGenerationConfig(),
		analysisConfig: analysisGenerationConfig(),
		researchConfig: researchGenerationConfig(),
	}, nil
}

func visionGenerationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction(transcriptionSystemPrompt),
		Temperature:       genai.Ptr[float32](0.0),
		SafetySettings:    permissiveSafetySettings(),
	}
}

func analysisGenerationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction(analysisSystemPrompt),
		// Force JSON output against the fixed analysis shape.
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisResponseSchema(),
		Temperature:      genai.Ptr[float32](0.1),
		SafetySettings:   permissiveSafetySettings(),
	}
}

func researchGenerationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction(researchSystemPrompt),
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
		SafetySettings: permissiveSafetySettings(),
	}
}

func systemInstruction(prompt string) *genai.Content {
	return &genai.Content{
		Parts: []*genai.Part{genai.NewPartFromText(prompt)},
	}
}

// Legal documents routinely mention sanctions, crimes and penalties; the
// default thresholds block them.
func permissiveSafetySettings() []*genai.SafetySetting {
	return []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	}
}

// Transcribe sends the image bytes with the fixed transcription instruction.
func (s *GeminiService) Transcribe(ctx context.Context, image []byte, mediaType string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mediaType),
			genai.NewPartFromText(transcriptionUserPrompt),
		}, genai.RoleUser),
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.visionModel, contents, s.visionConfig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}

	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		return "", fmt.Errorf("%w: empty response from model", ErrTranscription)
	}
	return text, nil
}

// Analyze sends a bounded prefix of the transcription and parses the
// structured payload. The prompt truncation is silent: text beyond the
// configured budget never reaches the reasoning model.
func (s *GeminiService) Analyze(ctx context.Context, text string) (*model.AnalysisResult, error) {
	prompt := buildAnalysisPrompt(truncateChars(text, s.limits.AnalysisMaxChars))

	resp, err := s.client.Models.GenerateContent(ctx, s.analysisModel, genai.Text(prompt), s.analysisConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisParse, err)
	}

	return assembleAnalysis(text, responseText(resp))
}

// Research sends the query plus a bounded excerpt of the analyzed document
// with Google Search grounding enabled.
func (s *GeminiService) Research(ctx context.Context, query, contextText string) (*model.ResearchEntry, error) {
	prompt := buildResearchPrompt(query, truncateChars(contextText, s.limits.ResearchContextMaxChars))

	resp, err := s.client.Models.GenerateContent(ctx, s.researchModel, genai.Text(prompt), s.researchConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResearch, err)
	}

	findings := strings.TrimSpace(responseText(resp))
	if findings == "" {
		return nil, fmt.Errorf("%w: empty response from model", ErrResearch)
	}

	return &model.ResearchEntry{
		Query:     query,
		Findings:  findings,
		Sources:   citedSources(resp),
		CreatedAt: time.Now(),
	}, nil
}

func buildAnalysisPrompt(text string) string {
	var b strings.Builder
	b.WriteString(`Analise o documento de cartório transcrito abaixo e produza um objeto JSON com os campos:

- "rawText": o texto transcrito do documento.
- "summary": resumo do documento em linguagem simples.
- "documentType": o tipo do documento (ex.: "Procuração", "Escritura de Compra e Venda", "Contrato de Locação").
- "parties": lista de strings descrevendo cada parte envolvida e seu papel.
- "dates": lista de strings com as datas relevantes mencionadas.
- "missingRequirements": lista de formalidades ou documentos acessórios provavelmente ausentes, considerando o tipo do documento.
- "riskFactors": lista de objetos {"severity": "LOW"|"MEDIUM"|"HIGH", "description": descrição do risco, "location": trecho ou cláusula onde o risco aparece}.

Documento transcrito:
`)
	b.WriteString(text)
	return b.String()
}

func buildResearchPrompt(query, contextText string) string {
	var b strings.Builder
	b.WriteString("Pergunta do escrevente:\n")
	b.WriteString(query)
	if contextText != "" {
		b.WriteString("\n\nContexto (trecho do documento em análise no cartório):\n")
		b.WriteString(contextText)
	}
	return b.String()
}

// assembleAnalysis parses the structured payload and restores the verbatim
// transcription. The reasoning model often echoes a truncated rawText; the
// transcription output is authoritative.
func assembleAnalysis(transcription, payload string) (*model.AnalysisResult, error) {
	raw := stripCodeFence(strings.TrimSpace(payload))
	if raw == "" {
		return nil, fmt.Errorf("%w: empty response from model", ErrAnalysisParse)
	}

	if err := validateAnalysisPayload([]byte(raw)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisParse, err)
	}

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisParse, err)
	}

	result.Normalize()
	result.RawText = transcription
	return &result, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// citedSources extracts the web grounding chunks of the first candidate,
// keeping only entries with a resolvable title and URI. Always returns a
// non-nil slice: no grounding metadata is a valid, inconclusive answer.
func citedSources(resp *genai.GenerateContentResponse) []model.Source {
	sources := []model.Source{}
	if resp == nil || len(resp.Candidates) == 0 {
		return sources
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return sources
	}

	seen := make(map[string]struct{})
	for _, chunk := range meta.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		if chunk.Web.Title == "" || chunk.Web.URI == "" {
			continue
		}
		if _, dup := seen[chunk.Web.URI]; dup {
			continue
		}
		seen[chunk.Web.URI] = struct{}{}
		sources = append(sources, model.Source{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}
	return sources
}

func stripCodeFence(s string) string {
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// truncateChars cuts s to at most max bytes without splitting a rune.
// max <= 0 means unlimited.
func truncateChars(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
