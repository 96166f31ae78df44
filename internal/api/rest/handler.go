package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/tradeforge/ledger-core/internal/api/rest/dto"
	"github.com/tradeforge/ledger-core/internal/domain"
	"github.com/tradeforge/ledger-core/internal/store"
	"github.com/tradeforge/ledger-core/internal/store/schema"
)

// Ledger is the surface of the ledger engine the REST layer depends on.
// This interface allows for easy mocking and testing.
type Ledger interface {
	CreateAsset(ctx context.Context, chain domain.Chain, symbol string, decimals int32) (*schema.Asset, error)
	ListAssets(ctx context.Context) ([]*schema.Asset, error)
	EnsureAccount(ctx context.Context, owner domain.Owner, assetID uint64) (*schema.Account, error)
	GetAccount(ctx context.Context, accountID uint64) (*schema.Account, error)
	FreezeAccount(ctx context.Context, accountID uint64) error
	UnfreezeAccount(ctx context.Context, accountID uint64) error
	PostEntry(ctx context.Context, input store.PostEntryInput) (*schema.JournalEntry, error)
	Entry(ctx context.Context, entryID uint64) (*schema.JournalEntry, error)
	Entries(ctx context.Context, afterID uint64, limit int) ([]*schema.JournalEntry, error)
	CreateHold(ctx context.Context, accountID uint64, amount decimal.Decimal, reason string) (*schema.Hold, error)
	GetHold(ctx context.Context, holdID uuid.UUID) (*schema.Hold, error)
	ReleaseHold(ctx context.Context, holdID uuid.UUID) (*schema.Hold, error)
	ConsumeHold(ctx context.Context, holdID uuid.UUID, input store.PostEntryInput) (*schema.JournalEntry, *schema.Hold, error)
	Balance(ctx context.Context, accountID uint64) (*store.Balance, error)
	AdjustToTarget(ctx context.Context, accountID uint64, target decimal.Decimal, counterparty domain.Owner, reference string) (*schema.JournalEntry, error)
	ZeroOutOwner(ctx context.Context, owner domain.Owner, reference string) error
}

// Handler defines the interface for REST API handlers
type Handler interface {
	// CreateAsset registers a new asset (admin)
	// POST /v1/assets
	CreateAsset(c *gin.Context)

	// ListAssets retrieves every registered asset
	// GET /v1/assets
	ListAssets(c *gin.Context)

	// EnsureAccount lazily creates the account for (owner, asset)
	// POST /v1/accounts
	EnsureAccount(c *gin.Context)

	// GetAccount retrieves an account by ID
	// GET /v1/accounts/:id
	GetAccount(c *gin.Context)

	// GetBalance retrieves the posted/held/available projection of an account
	// GET /v1/accounts/:id/balance
	GetBalance(c *gin.Context)

	// FreezeAccount blocks debits and new holds on an account (admin)
	// POST /v1/accounts/:id/freeze
	FreezeAccount(c *gin.Context)

	// UnfreezeAccount returns a frozen account to active (admin)
	// POST /v1/accounts/:id/unfreeze
	UnfreezeAccount(c *gin.Context)

	// PostEntry posts one balanced journal entry
	// POST /v1/entries
	PostEntry(c *gin.Context)

	// GetEntry retrieves an entry with its lines
	// GET /v1/entries/:id
	GetEntry(c *gin.Context)

	// ListEntries pages through the journal
	// GET /v1/entries?after_id=<id>&limit=<limit>
	ListEntries(c *gin.Context)

	// CreateHold reserves amount against an account
	// POST /v1/holds
	CreateHold(c *gin.Context)

	// GetHold retrieves a hold by ID
	// GET /v1/holds/:id
	GetHold(c *gin.Context)

	// ReleaseHold returns an active hold's remaining amount to available
	// POST /v1/holds/:id/release
	ReleaseHold(c *gin.Context)

	// ConsumeHold settles part or all of a hold with a balanced entry
	// POST /v1/holds/:id/consume
	ConsumeHold(c *gin.Context)

	// Adjust sets an account's posted balance to a target value (admin)
	// POST /v1/admin/adjust
	Adjust(c *gin.Context)

	// ZeroOutOwner zeroes and freezes every account of an owner (admin)
	// POST /v1/admin/zero-out
	ZeroOutOwner(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /healthz
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	ledger Ledger
}

// NewHandler creates a new REST API handler over the ledger engine
func NewHandler(ledger Ledger) Handler {
	return &handler{ledger: ledger}
}

// parseIDParam parses the :id path parameter as an unsigned integer
func parseIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondBadRequest(c, "Invalid ID")
		return 0, false
	}
	return id, true
}

// toEntryInput converts a request body into the store write model
func toEntryInput(req dto.PostEntryRequest) store.PostEntryInput {
	input := store.PostEntryInput{
		Type:      domain.EntryType(req.Type),
		Reference: req.Reference,
		Lines:     make([]store.LineInput, 0, len(req.Lines)),
	}
	if len(req.Metadata) > 0 {
		input.Metadata = datatypes.JSON(req.Metadata)
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, store.LineInput{
			AccountID: line.AccountID,
			AssetID:   line.AssetID,
			Amount:    line.Amount,
		})
	}
	return input
}

// CreateAsset registers a new asset
func (h *handler) CreateAsset(c *gin.Context) {
	var req dto.CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	asset, err := h.ledger.CreateAsset(c.Request.Context(), domain.Chain(req.Chain), req.Symbol, req.Decimals)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromAsset(asset))
}

// ListAssets retrieves every registered asset
func (h *handler) ListAssets(c *gin.Context) {
	assets, err := h.ledger.ListAssets(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response := make([]*dto.AssetResponse, 0, len(assets))
	for _, asset := range assets {
		response = append(response, dto.FromAsset(asset))
	}
	c.JSON(http.StatusOK, response)
}

// EnsureAccount lazily creates the account for (owner, asset)
func (h *handler) EnsureAccount(c *gin.Context) {
	var req dto.EnsureAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	account, err := h.ledger.EnsureAccount(c.Request.Context(), domain.Owner(req.Owner), req.AssetID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromAccount(account))
}

// GetAccount retrieves an account by ID
func (h *handler) GetAccount(c *gin.Context) {
	accountID, ok := parseIDParam(c)
	if !ok {
		return
	}

	account, err := h.ledger.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromAccount(account))
}

// GetBalance retrieves the balance projection of an account
func (h *handler) GetBalance(c *gin.Context) {
	accountID, ok := parseIDParam(c)
	if !ok {
		return
	}

	balance, err := h.ledger.Balance(c.Request.Context(), accountID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromBalance(balance))
}

// FreezeAccount blocks debits and new holds on an account
func (h *handler) FreezeAccount(c *gin.Context) {
	accountID, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.ledger.FreezeAccount(c.Request.Context(), accountID); err != nil {
		respondDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UnfreezeAccount returns a frozen account to active
func (h *handler) UnfreezeAccount(c *gin.Context) {
	accountID, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.ledger.UnfreezeAccount(c.Request.Context(), accountID); err != nil {
		respondDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// PostEntry posts one balanced journal entry
func (h *handler) PostEntry(c *gin.Context) {
	var req dto.PostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	entry, err := h.ledger.PostEntry(c.Request.Context(), toEntryInput(req))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromEntry(entry))
}

// GetEntry retrieves an entry with its lines
func (h *handler) GetEntry(c *gin.Context) {
	entryID, ok := parseIDParam(c)
	if !ok {
		return
	}

	entry, err := h.ledger.Entry(c.Request.Context(), entryID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromEntry(entry))
}

// ListEntries pages through the journal in ascending ID order
func (h *handler) ListEntries(c *gin.Context) {
	var afterID uint64
	if raw := c.Query("after_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondBadRequest(c, "Invalid after_id")
			return
		}
		afterID = parsed
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondBadRequest(c, "Invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.ledger.Entries(c.Request.Context(), afterID, limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response := make([]*dto.EntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, dto.FromEntry(entry))
	}
	c.JSON(http.StatusOK, response)
}

// CreateHold reserves amount against an account
func (h *handler) CreateHold(c *gin.Context) {
	var req dto.CreateHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	hold, err := h.ledger.CreateHold(c.Request.Context(), req.AccountID, req.Amount, req.Reason)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromHold(hold))
}

// parseHoldID parses the :id path parameter as a hold UUID
func parseHoldID(c *gin.Context) (uuid.UUID, bool) {
	holdID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid hold ID")
		return uuid.Nil, false
	}
	return holdID, true
}

// GetHold retrieves a hold by ID
func (h *handler) GetHold(c *gin.Context) {
	holdID, ok := parseHoldID(c)
	if !ok {
		return
	}

	hold, err := h.ledger.GetHold(c.Request.Context(), holdID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromHold(hold))
}

// ReleaseHold returns an active hold's remaining amount to available
func (h *handler) ReleaseHold(c *gin.Context) {
	holdID, ok := parseHoldID(c)
	if !ok {
		return
	}

	hold, err := h.ledger.ReleaseHold(c.Request.Context(), holdID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromHold(hold))
}

// ConsumeHold settles part or all of a hold with a balanced entry
func (h *handler) ConsumeHold(c *gin.Context) {
	holdID, ok := parseHoldID(c)
	if !ok {
		return
	}

	var req dto.ConsumeHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	entry, hold, err := h.ledger.ConsumeHold(c.Request.Context(), holdID, toEntryInput(req.Entry))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ConsumeHoldResponse{
		Entry: dto.FromEntry(entry),
		Hold:  dto.FromHold(hold),
	})
}

// Adjust sets an account's posted balance to a target value
func (h *handler) Adjust(c *gin.Context) {
	var req dto.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	entry, err := h.ledger.AdjustToTarget(c.Request.Context(), req.AccountID, req.Target,
		domain.Owner(req.Counterparty), req.Reference)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	// A nil entry means the account was already at target or the reference
	// was already applied
	if entry == nil {
		c.JSON(http.StatusOK, gin.H{"entry": nil})
		return
	}

	c.JSON(http.StatusCreated, dto.FromEntry(entry))
}

// ZeroOutOwner zeroes and freezes every account of an owner
func (h *handler) ZeroOutOwner(c *gin.Context) {
	var req dto.ZeroOutOwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	if err := h.ledger.ZeroOutOwner(c.Request.Context(), domain.Owner(req.Owner), req.Reference); err != nil {
		respondDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
