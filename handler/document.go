package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noniixxxds/cartorio-teste-final/config"
	"github.com/noniixxxds/cartorio-teste-final/service"
)

// imageMediaTypes maps accepted upload extensions to the media type sent to
// the transcription model.
var imageMediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

type DocumentHandler struct {
	session        *service.Session
	maxUploadBytes int64
}

func NewDocumentHandler(session *service.Session, limits *config.LimitsConfig) *DocumentHandler {
	return &DocumentHandler{
		session:        session,
		maxUploadBytes: int64(limits.MaxUploadMB) << 20,
	}
}

// Upload receives the scanned document image and kicks off the pipeline.
// The image lives only in memory; nothing is written to disk.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nenhum arquivo enviado"})
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("Arquivo muito grande. O limite é %d MB.", h.maxUploadBytes>>20),
		})
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	mediaType, ok := imageMediaTypes[ext]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Apenas imagens JPG, PNG ou WEBP são aceitas"})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Falha ao ler o arquivo"})
		return
	}

	// The browser's declared content type is unreliable; sniff the bytes.
	detected := http.DetectContentType(data)
	if !strings.HasPrefix(detected, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "O arquivo enviado não é uma imagem válida"})
		return
	}
	mediaType = detected

	record, err := h.session.StartDocument(header.Filename, mediaType, data)
	if err != nil {
		if errors.Is(err, service.ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": "Já existe um documento em processamento"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Falha ao iniciar o processamento"})
		return
	}

	// The pipeline runs detached from the request; the UI polls the
	// snapshot endpoint to follow the status.
	go h.session.ProcessDocument(context.Background())

	c.JSON(http.StatusAccepted, gin.H{
		"id":       record.ID,
		"filename": record.Filename,
		"status":   h.session.Snapshot().Status,
	})
}

// Get returns the session snapshot: status, failure message and the current
// document (without the image payload).
func (h *DocumentHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// Image serves the uploaded image bytes for the preview panel.
func (h *DocumentHandler) Image(c *gin.Context) {
	snap := h.session.Snapshot()
	if snap.Document == nil || len(snap.Document.Image) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Nenhum documento carregado"})
		return
	}
	c.Data(http.StatusOK, snap.Document.MediaType, snap.Document.Image)
}

// Reset discards the current document and returns the session to idle.
func (h *DocumentHandler) Reset(c *gin.Context) {
	if err := h.session.Reset(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Aguarde o processamento atual terminar"})
		return
	}
	c.JSON(http.StatusOK, h.session.Snapshot())
}
