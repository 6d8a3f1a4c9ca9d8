package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noniixxxds/cartorio-teste-final/model"
	"github.com/noniixxxds/cartorio-teste-final/service"
)

type ResearchHandler struct {
	session *service.Session
}

func NewResearchHandler(session *service.Session) *ResearchHandler {
	return &ResearchHandler{session: session}
}

type researchRequest struct {
	Query string `json:"query"`
}

// Submit starts a search-grounded research query against the analyzed
// document. Only valid while the session is ready; a failed query later
// returns the session to ready without recording anything.
func (h *ResearchHandler) Submit(c *gin.Context) {
	var req researchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requisição inválida"})
		return
	}

	query, err := h.session.StartResearch(req.Query)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyQuery):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Digite uma consulta"})
		case errors.Is(err, service.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": "Aguarde a operação atual terminar"})
		default:
			c.JSON(http.StatusConflict, gin.H{"error": "Nenhum documento analisado para pesquisar"})
		}
		return
	}

	go h.session.ProcessResearch(context.Background(), query)

	c.JSON(http.StatusAccepted, gin.H{"status": model.StatusResearching})
}
