package service

import (
	"context"
	"errors"

	"github.com/noniixxxds/cartorio-teste-final/model"
)

// Intelligence is the narrow capability surface of the hosted AI collaborator.
// The pipeline and the session state machine only ever talk to this interface,
// so both can be exercised against a deterministic fake.
type Intelligence interface {
	// Transcribe extracts the verbatim text of a scanned document image.
	Transcribe(ctx context.Context, image []byte, mediaType string) (string, error)

	// Analyze runs the structured legal analysis over a transcription. The
	// returned result carries the full transcription in RawText regardless of
	// what the model echoed back.
	Analyze(ctx context.Context, text string) (*model.AnalysisResult, error)

	// Research answers a free-form query grounded on web search, with a
	// bounded excerpt of the document as context. An answer with no findings
	// and no sources is valid; only transport failures and empty responses
	// are errors.
	Research(ctx context.Context, query, contextText string) (*model.ResearchEntry, error)
}

// Stage failure sentinels. Each pipeline stage wraps its failures with its
// own sentinel so callers can attribute an error to a specific stage.
var (
	ErrTranscription = errors.New("transcription failed")
	ErrAnalysisParse = errors.New("analysis response malformed or empty")
	ErrResearch      = errors.New("research failed")
)
