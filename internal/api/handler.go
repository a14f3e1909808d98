package api

import (
	"encoding/base64"
	"errors"
	"strconv"

	"contentforge/config"
	"contentforge/internal/archive"
	"contentforge/internal/generate"
	"contentforge/internal/ledger"
	"contentforge/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler handles the HTTP API
type Handler struct {
	svc     *generate.Service
	storage *ledger.Storage
	archive *archive.Store
	checker provider.Checker
	cfg     *config.Config
}

// NewHandler creates a new API handler
func NewHandler(svc *generate.Service, storage *ledger.Storage, arch *archive.Store, checker provider.Checker, cfg *config.Config) *Handler {
	return &Handler{
		svc:     svc,
		storage: storage,
		archive: arch,
		checker: checker,
		cfg:     cfg,
	}
}

// Register wires all routes onto the engine
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.Health)

	apiGroup := r.Group("/api")
	{
		// Generation
		apiGroup.POST("/generate", h.Generate)
		apiGroup.POST("/generate/image", h.GenerateImage)

		// Accounts
		apiGroup.GET("/accounts", h.ListAccounts)
		apiGroup.POST("/accounts", h.CreateAccount)
		apiGroup.GET("/accounts/:id", h.GetAccount)
		apiGroup.PUT("/accounts/:id", h.UpdateAccount)
		apiGroup.DELETE("/accounts/:id", h.DeleteAccount)
		apiGroup.GET("/accounts/:id/balance", h.GetBalance)
		apiGroup.POST("/accounts/:id/credits", h.TopUp)
		apiGroup.GET("/accounts/:id/generations", h.ListGenerations)

		// Stats
		apiGroup.GET("/stats", h.GetStats)

		// Provider
		apiGroup.GET("/provider/check", h.CheckProvider)
	}
}

// statusForError maps a generation error to an HTTP status code
func statusForError(err error) int {
	switch {
	case errors.Is(err, generate.ErrInvalidInput):
		return 400
	case errors.Is(err, generate.ErrInsufficientCredit):
		return 402
	case errors.Is(err, ledger.ErrNotFound):
		return 404
	case errors.Is(err, archive.ErrPersistence):
		return 500
	}

	var perr *provider.Error
	if errors.As(err, &perr) {
		switch perr.Kind {
		case provider.KindUnauthenticated:
			return 502
		case provider.KindRateLimited:
			return 429
		case provider.KindInvalidInput:
			return 400
		default:
			return 503
		}
	}

	return 500
}

// GenerateRequest is the body for POST /api/generate
type GenerateRequest struct {
	AccountID int64           `json:"account_id" binding:"required"`
	Prompt    string          `json:"prompt" binding:"required"`
	Kind      generate.Kind   `json:"kind"`
	Tone      generate.Tone   `json:"tone"`
	Length    generate.Length `json:"length"`
}

// Generate runs one credit-gated text generation
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.Submit(c.Request.Context(), req.AccountID, generate.Request{
		Prompt: req.Prompt,
		Kind:   req.Kind,
		Tone:   req.Tone,
		Length: req.Length,
	})
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"content": res.Record.Content,
		"credits": res.Balance,
		"record":  res.Record,
	})
}

// GenerateImage runs one image generation (no credit, not persisted)
func (h *Handler) GenerateImage(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	payload, err := h.svc.GenerateImage(c.Request.Context(), req.Prompt)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"image": "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload),
	})
}

// ListAccounts returns all accounts
func (h *Handler) ListAccounts(c *gin.Context) {
	accounts, err := h.storage.List(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, accounts)
}

// CreateAccount creates a new account with the configured starting balance
func (h *Handler) CreateAccount(c *gin.Context) {
	var input ledger.AccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	acc, err := h.storage.Create(c.Request.Context(), input, h.cfg.Credits.InitialBalance)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	c.JSON(201, acc)
}

// GetAccount returns an account by ID
func (h *Handler) GetAccount(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid id"})
		return
	}

	acc, err := h.storage.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(404, gin.H{"error": "account not found"})
			return
		}
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, acc)
}

// UpdateAccount updates an account's display name
func (h *Handler) UpdateAccount(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid id"})
		return
	}

	var input struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	acc, err := h.storage.UpdateName(c.Request.Context(), id, input.Name)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(404, gin.H{"error": "account not found"})
			return
		}
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, acc)
}

// DeleteAccount deletes an account
func (h *Handler) DeleteAccount(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid id"})
		return
	}

	if err := h.storage.Delete(c.Request.Context(), id); err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	c.JSON(204, nil)
}

// GetBalance returns the current credit balance
func (h *Handler) GetBalance(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid id"})
		return
	}

	balance, err := h.storage.GetBalance(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(404, gin.H{"error": "account not found"})
			return
		}
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{"credits": balance})
}

// TopUp adds credits to an account
func (h *Handler) TopUp(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid id"})
		return
	}

	var input struct {
		Amount int64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if input.Amount <= 0 {
		c.JSON(400, gin.H{"error": "amount must be positive"})
		return
	}

	balance, err := h.storage.Credit(c.Request.Context(), id, input.Amount)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(404, gin.H{"error": "account not found"})
			return
		}
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{"credits": balance})
}

// ListGenerations returns an account's generations, newest first
func (h *Handler) ListGenerations(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid id"})
		return
	}

	records, err := h.archive.ListByAccount(c.Request.Context(), id)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []archive.Record{}
	}

	c.JSON(200, records)
}

// GetStats returns archive-wide generation statistics
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.archive.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, stats)
}

// CheckProvider probes connectivity to the generation provider
func (h *Handler) CheckProvider(c *gin.Context) {
	if h.checker == nil {
		c.JSON(503, gin.H{"error": "provider not configured"})
		return
	}

	message, err := h.checker.Check(c.Request.Context())
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{"success": true, "message": message})
}

// Health returns health status
func (h *Handler) Health(c *gin.Context) {
	accounts, _ := h.storage.List(c.Request.Context())

	status := "healthy"
	if len(accounts) == 0 {
		status = "no_accounts"
	}

	c.JSON(200, gin.H{
		"status":         status,
		"total_accounts": len(accounts),
	})
}
