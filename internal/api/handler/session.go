package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tobyn/inkwell/internal/domain"
	"github.com/tobyn/inkwell/internal/service"
	"github.com/tobyn/inkwell/internal/store"
)

// SessionHandler handles the book-session endpoints: creation, the staged
// generation phases, and reconnect/restore.
type SessionHandler struct {
	books *service.BookService
}

// NewSessionHandler creates a new session handler.
// Parameters:
//   - books: book generation service.
// Returns:
//   - *SessionHandler: initialized handler.
func NewSessionHandler(books *service.BookService) *SessionHandler {
	return &SessionHandler{books: books}
}

// Create handles POST /api/v1/sessions.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SessionHandler) Create(c *gin.Context) {
	var form domain.SubmissionForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}
	if form.Title == "" || form.Premise == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Fields 'title' and 'premise' are required",
		})
		return
	}

	session, err := h.books.CreateSession(c.Request.Context(), form)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create session: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, session)
}

// Restore handles GET /api/v1/sessions/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SessionHandler) Restore(c *gin.Context) {
	view, err := h.books.Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type answersRequest struct {
	Answers []string `json:"answers" binding:"required"`
}

// SubmitAnswers handles POST /api/v1/sessions/:id/answers.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SessionHandler) SubmitAnswers(c *gin.Context) {
	var req answersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}
	if err := h.books.SubmitAnswers(c.Request.Context(), c.Param("id"), req.Answers); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GenerateDraft handles POST /api/v1/sessions/:id/draft.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SessionHandler) GenerateDraft(c *gin.Context) {
	draft, err := h.books.GenerateDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}

// GenerateOutline handles POST /api/v1/sessions/:id/outline.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SessionHandler) GenerateOutline(c *gin.Context) {
	outline, err := h.books.GenerateOutline(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outline": outline})
}

// StartWriting handles POST /api/v1/sessions/:id/write.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SessionHandler) StartWriting(c *gin.Context) {
	if err := h.books.StartWriting(c.Request.Context(), c.Param("id")); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "writing"})
}

// Progress handles GET /api/v1/sessions/:id/progress.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SessionHandler) Progress(c *gin.Context) {
	state, seconds, confidence, err := h.books.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"progress":                    state,
		"estimated_seconds_remaining": seconds,
		"estimate_confidence":         confidence,
	})
}

// Pause handles POST /api/v1/sessions/:id/pause.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SessionHandler) Pause(c *gin.Context) {
	if err := h.books.Pause(c.Request.Context(), c.Param("id")); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "paused"})
}

// Resume handles POST /api/v1/sessions/:id/resume.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SessionHandler) Resume(c *gin.Context) {
	if err := h.books.Resume(c.Request.Context(), c.Param("id")); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resumed"})
}

// writeStoreError maps service errors onto HTTP status codes: missing
// sessions are 404, rejected transitions 409, everything else 500.
func writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
