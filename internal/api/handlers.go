package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mailtriage/internal/mailbox"
	"mailtriage/internal/models"
	"mailtriage/internal/pipeline"
	"mailtriage/internal/service/extract"
	"mailtriage/internal/storage"
)

// Runner is the processing pipeline as the HTTP layer sees it.
type Runner interface {
	State(emailID string) models.RunState
	Result(emailID string) *pipeline.Result
	Process(ctx context.Context, email *models.Email, attachmentID string, stageFn pipeline.StageFn) (*pipeline.Result, error)
	Draft(ctx context.Context, email *models.Email) (*models.GeneratedReply, error)
}

// Handler wires HTTP routes to the mailbox, the pipeline, and the stores.
type Handler struct {
	inbox  *mailbox.Store
	sender mailbox.Sender
	runs   Runner
	sent   *storage.SentStore
	keys   *storage.KeyStore
	// onKeyChange rebuilds the reply generator after a key is saved. May be
	// nil; a rebuild failure must not fail the save.
	onKeyChange func(provider, key string) error
}

// NewHandler constructs a Handler instance.
func NewHandler(inbox *mailbox.Store, sender mailbox.Sender, runs Runner, sent *storage.SentStore, keys *storage.KeyStore, onKeyChange func(provider, key string) error) *Handler {
	return &Handler{
		inbox:       inbox,
		sender:      sender,
		runs:        runs,
		sent:        sent,
		keys:        keys,
		onKeyChange: onKeyChange,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.health)
	api := router.Group("/api")
	api.GET("/inbox", h.listInbox)
	api.GET("/inbox/:id", h.getEmail)
	api.POST("/inbox/:id/read", h.markRead)
	api.POST("/inbox/:id/attachments/:attachment_id/process", h.processAttachment)
	api.GET("/inbox/:id/result", h.getResult)
	api.POST("/inbox/:id/reply", h.draftReply)
	api.POST("/inbox/:id/send", h.sendReply)
	api.GET("/sent", h.listSent)
	api.GET("/categories", h.listCategories)
	api.PUT("/settings/apikey", h.setAPIKey)
	api.GET("/settings/apikey", h.listAPIKeyProviders)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// lookupEmail resolves the :id path param, answering 404 itself on a miss.
func (h *Handler) lookupEmail(c *gin.Context) (*models.Email, bool) {
	email := h.inbox.Get(c.Param("id"))
	if email == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return nil, false
	}
	return email, true
}

func (h *Handler) listInbox(c *gin.Context) {
	emails := h.inbox.ListInbox()
	if len(emails) == 0 {
		emails = make([]*models.Email, 0)
	}
	c.JSON(http.StatusOK, gin.H{"emails": emails})
}

func (h *Handler) getEmail(c *gin.Context) {
	email, ok := h.lookupEmail(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"email":     email,
		"run_state": h.runs.State(email.ID),
	})
}

func (h *Handler) markRead(c *gin.Context) {
	if !h.inbox.MarkRead(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// processAttachment runs the pipeline over SSE. Pre-stage rejections (unknown
// attachment, non-document input, a run already in flight) answer with plain
// JSON before the stream opens; once stage events are flowing, failures arrive
// as an "error" event carrying the status code they would have had.
func (h *Handler) processAttachment(c *gin.Context) {
	email, ok := h.lookupEmail(c)
	if !ok {
		return
	}
	att := email.AttachmentByID(c.Param("attachment_id"))
	if att == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "attachment not found"})
		return
	}
	if !extract.Eligible(att) {
		c.JSON(http.StatusBadRequest, gin.H{"error": pipeline.ErrNotEligible.Error()})
		return
	}
	if h.runs.State(email.ID).InFlight() {
		c.JSON(http.StatusConflict, gin.H{"error": pipeline.ErrRunInFlight.Error()})
		return
	}

	runCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()
	// SSE Request construction
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	sendEvent := func(event string, payload interface{}) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if event != "" {
			if _, err := fmt.Fprintf(c.Writer, "event: %s\n", event); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	result, err := h.runs.Process(runCtx, email, att.ID, func(state models.RunState) {
		_ = sendEvent("stage", gin.H{"state": state})
	})
	if err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, pipeline.ErrNoOrderData):
			code = http.StatusUnprocessableEntity
		case errors.Is(err, pipeline.ErrRunInFlight):
			code = http.StatusConflict
		}
		_ = sendEvent("error", gin.H{"code": code, "message": err.Error()})
		return
	}
	_ = sendEvent("done", result)
}

func (h *Handler) getResult(c *gin.Context) {
	email, ok := h.lookupEmail(c)
	if !ok {
		return
	}
	result := h.runs.Result(email.ID)
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no result available"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// draftReply produces a reply draft without a processing run: the way
// inquiry, support, and other emails get a templated response.
func (h *Handler) draftReply(c *gin.Context) {
	email, ok := h.lookupEmail(c)
	if !ok {
		return
	}
	generated, err := h.runs.Draft(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "draft reply failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": generated})
}

// Reply send interface
type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// sendReply sends whatever the client submitted, edits included. A record is
// appended only after the provider confirms the send.
func (h *Handler) sendReply(c *gin.Context) {
	email, ok := h.lookupEmail(c)
	if !ok {
		return
	}
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	to := strings.TrimSpace(req.To)
	if to == "" {
		to = email.From.Address
	}
	if strings.TrimSpace(req.Subject) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject is required"})
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body is required"})
		return
	}

	sent, err := h.sender.Send(c.Request.Context(), to, req.Subject, req.Body)
	if err != nil || !sent {
		c.JSON(http.StatusBadGateway, gin.H{"error": "send failed, please retry"})
		return
	}
	msg := &models.SentMessage{
		ID:      uuid.NewString(),
		To:      to,
		Subject: req.Subject,
		Body:    req.Body,
		SentAt:  time.Now().UTC(),
	}
	if err := h.sent.Append(c.Request.Context(), msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record sent message failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *Handler) listSent(c *gin.Context) {
	messages, err := h.sent.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(messages) == 0 {
		messages = make([]*models.SentMessage, 0)
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *Handler) listCategories(c *gin.Context) {
	counts := h.inbox.Counts()
	out := gin.H{}
	for _, cat := range []models.Category{models.CategoryOrder, models.CategoryInquiry, models.CategorySupport, models.CategoryOther} {
		out[string(cat)] = counts[cat]
	}
	c.JSON(http.StatusOK, gin.H{"counts": out})
}

// handle provider api key
type apiKeyRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}

func (h *Handler) setAPIKey(c *gin.Context) {
	var req apiKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	provider := strings.TrimSpace(req.Provider)
	if provider == "" {
		provider = "openai"
	}
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "api_key is required"})
		return
	}
	if provider == "openai" && !strings.HasPrefix(key, "sk-") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "api_key has an invalid format"})
		return
	}
	if err := h.keys.Set(c.Request.Context(), provider, key); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store api key failed"})
		return
	}
	if h.onKeyChange != nil {
		_ = h.onKeyChange(provider, key)
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listAPIKeyProviders(c *gin.Context) {
	providers, err := h.keys.Providers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": providers})
}
