package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noniixxxds/cartorio-teste-final/model"
	"github.com/noniixxxds/cartorio-teste-final/pkg/logger"
)

var (
	// ErrBusy is returned when a pipeline operation is already in flight.
	ErrBusy = errors.New("another operation is in flight")
	// ErrNotReady is returned when research is submitted without an analyzed document.
	ErrNotReady = errors.New("no analyzed document in session")
	// ErrEmptyQuery is returned for blank research queries.
	ErrEmptyQuery = errors.New("query is empty")
)

// Failure messages shown to the user. The underlying cause goes to the log,
// never to the browser.
const (
	msgTranscriptionFailed = "Não foi possível transcrever o documento. Verifique a qualidade da imagem e tente novamente."
	msgAnalysisFailed      = "Não foi possível analisar o documento. Tente novamente em instantes."
)

// Session owns the single DocumentRecord and Status of the process. All
// mutation goes through it; handlers only ever see snapshots. External calls
// are strictly sequential: a new submit is rejected while one is in flight.
type Session struct {
	mu      sync.Mutex
	intel   Intelligence
	status  model.Status
	record  *model.DocumentRecord
	message string // user-facing failure message, set while status is failed
}

func NewSession(intel Intelligence) *Session {
	return &Session{
		intel:  intel,
		status: model.StatusIdle,
	}
}

// Snapshot is the read model handed to presentation. Document is a copy.
type Snapshot struct {
	Status   model.Status          `json:"status"`
	Message  string                `json:"message,omitempty"`
	Document *model.DocumentRecord `json:"document,omitempty"`
	HighRisk bool                  `json:"high_risk"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Status:   s.status,
		Message:  s.message,
		Document: s.record.Clone(),
	}
	if s.record != nil && s.record.Analysis != nil {
		snap.HighRisk = s.record.Analysis.HasHighRisk()
	}
	return snap
}

// StartDocument replaces the current record with a fresh one and moves the
// session to transcribing. Valid from any settled state; rejected while a
// pipeline run or research call is in flight. The caller is expected to
// follow up with ProcessDocument.
func (s *Session) StartDocument(filename, mediaType string, image []byte) (*model.DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.InFlight() {
		return nil, ErrBusy
	}

	s.record = &model.DocumentRecord{
		ID:        uuid.New().String(),
		Filename:  filename,
		MediaType: mediaType,
		Image:     image,
		Research:  []model.ResearchEntry{},
		CreatedAt: time.Now(),
	}
	s.status = model.StatusTranscribing
	s.message = ""

	return s.record.Clone(), nil
}

// ProcessDocument runs the two-stage pipeline for the record created by
// StartDocument: transcription, then structured analysis. On any stage
// failure the session ends in failed with a generic message; the partially
// built record stays visible so the image preview survives.
func (s *Session) ProcessDocument(ctx context.Context) {
	s.mu.Lock()
	if s.status != model.StatusTranscribing || s.record == nil {
		s.mu.Unlock()
		return
	}
	rec := s.record
	s.mu.Unlock()

	ctx = context.WithValue(ctx, logger.DocumentIDKey, rec.ID)
	logger.Info(ctx, "pipeline started", "filename", rec.Filename, "media_type", rec.MediaType)

	text, err := s.intel.Transcribe(ctx, rec.Image, rec.MediaType)
	if err != nil {
		logger.Error(ctx, "transcription failed", "error", err)
		s.fail(msgTranscriptionFailed)
		return
	}
	logger.Info(ctx, "transcription completed", "chars", len(text))

	s.setStatus(model.StatusAnalyzing)

	analysis, err := s.intel.Analyze(ctx, text)
	if err != nil {
		logger.Error(ctx, "analysis failed", "error", err)
		s.fail(msgAnalysisFailed)
		return
	}

	s.mu.Lock()
	rec.Analysis = analysis
	s.status = model.StatusReady
	s.mu.Unlock()

	logger.Info(ctx, "document ready",
		"document_type", analysis.DocumentType,
		"risk_findings", len(analysis.RiskFactors),
		"high_risk", analysis.HasHighRisk(),
	)
}

// StartResearch validates and claims a research slot. Valid only when the
// session is ready with an analyzed document and the query is non-blank.
// Returns the query to pass to ProcessResearch, verbatim: trimming is for
// the blank check only, the recorded entry keeps what the user typed.
func (s *Session) StartResearch(query string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyQuery
	}
	if s.status.InFlight() {
		return "", ErrBusy
	}
	if s.status != model.StatusReady || s.record == nil || s.record.Analysis == nil {
		return "", ErrNotReady
	}

	s.status = model.StatusResearching
	return query, nil
}

// ProcessResearch runs the grounded research call claimed by StartResearch.
// On success the entry is prepended to the record; on failure the attempt
// leaves no trace. Either way the session returns to ready, so a failed
// query never takes the analyzed document down with it.
func (s *Session) ProcessResearch(ctx context.Context, query string) {
	s.mu.Lock()
	if s.status != model.StatusResearching || s.record == nil || s.record.Analysis == nil {
		s.mu.Unlock()
		return
	}
	rec := s.record
	contextText := rec.Analysis.RawText
	s.mu.Unlock()

	ctx = context.WithValue(ctx, logger.DocumentIDKey, rec.ID)

	entry, err := s.intel.Research(ctx, query, contextText)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		logger.Warn(ctx, "research failed", "error", err)
	} else if s.record == rec {
		rec.Research = append([]model.ResearchEntry{*entry}, rec.Research...)
		logger.Info(ctx, "research completed", "sources", len(entry.Sources))
	}
	s.status = model.StatusReady
}

// Reset discards the current record and returns the session to idle.
// Rejected while a pipeline run is in flight.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.InFlight() {
		return ErrBusy
	}

	s.record = nil
	s.status = model.StatusIdle
	s.message = ""
	return nil
}

func (s *Session) setStatus(status model.Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *Session) fail(message string) {
	s.mu.Lock()
	s.status = model.StatusFailed
	s.message = message
	s.mu.Unlock()
}
