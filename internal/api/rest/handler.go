package rest

import (
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"github.com/feral-file/entitlement-registry/internal/domain"
	"github.com/feral-file/entitlement-registry/internal/entitlement"
	"github.com/feral-file/entitlement-registry/internal/registry"
)

// Handler handles HTTP requests for the entitlement registry
type Handler struct {
	registry *registry.Registry
}

// NewHandler creates a new REST API handler
func NewHandler(reg *registry.Registry) *Handler {
	return &Handler{registry: reg}
}

// mintRequest is the payload for minting one entitlement unit. All u256
// quantities travel as decimal strings; the signature is 0x-prefixed hex.
type mintRequest struct {
	ContentID       string `json:"content_id" binding:"required"`
	Holder          string `json:"holder" binding:"required"`
	ServiceProvider string `json:"service_provider" binding:"required"`
	UnitFee         string `json:"unit_fee" binding:"required"`
	RoyaltyRate     string `json:"royalty_rate" binding:"required"`
	UnitValidity    uint64 `json:"unit_validity" binding:"required"`
	Name            string `json:"name"`
	Signature       string `json:"signature" binding:"required"`
}

// transferRequest is the payload for transferring entitlement units
type transferRequest struct {
	ContentID string `json:"content_id" binding:"required"`
	From      string `json:"from" binding:"required"`
	To        string `json:"to" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
}

// setURIRequest is the payload for updating a content's metadata URI
type setURIRequest struct {
	Caller string `json:"caller" binding:"required"`
	URI    string `json:"uri" binding:"required"`
}

type contentResponse struct {
	ContentID       string `json:"content_id"`
	ServiceProvider string `json:"service_provider"`
	UnitFee         string `json:"unit_fee"`
	RoyaltyRate     string `json:"royalty_rate"`
	UnitValidity    uint64 `json:"unit_validity"`
	TotalSupply     string `json:"total_supply"`
	Name            string `json:"name"`
	URI             string `json:"uri,omitempty"`
}

// Mint handles POST /api/v1/entitlements/mint
func (h *Handler) Mint(c *gin.Context) {
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	contentID, err := domain.ParseUint256(req.ContentID)
	if err != nil {
		respondBadRequest(c, "Invalid content_id", err.Error())
		return
	}
	holder, err := domain.ParseAddress(req.Holder)
	if err != nil {
		respondBadRequest(c, "Invalid holder", err.Error())
		return
	}
	provider, err := domain.ParseAddress(req.ServiceProvider)
	if err != nil {
		respondBadRequest(c, "Invalid service_provider", err.Error())
		return
	}
	unitFee, err := domain.ParseUint256(req.UnitFee)
	if err != nil {
		respondBadRequest(c, "Invalid unit_fee", err.Error())
		return
	}
	royaltyRate, err := domain.ParseUint256(req.RoyaltyRate)
	if err != nil {
		respondBadRequest(c, "Invalid royalty_rate", err.Error())
		return
	}
	if req.UnitValidity > entitlement.MaxUnitValidity {
		respondBadRequest(c, "Invalid unit_validity",
			fmt.Sprintf("unit_validity must not exceed %d seconds", entitlement.MaxUnitValidity))
		return
	}
	signature, err := hexutil.Decode(req.Signature)
	if err != nil {
		respondBadRequest(c, "Invalid signature", err.Error())
		return
	}

	err = h.registry.Mint(c.Request.Context(), registry.MintParams{
		ContentID:               contentID,
		UnitValidity:            req.UnitValidity,
		Holder:                  holder,
		RoyaltyRateMilliPercent: royaltyRate,
		UnitFee:                 unitFee,
		ServiceProvider:         provider,
		Name:                    req.Name,
		Signature:               signature,
	})
	if err != nil {
		respondRegistryError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"content_id": contentID.String(),
		"holder":     holder.Hex(),
		"unit_fee":   unitFee.String(),
	})
}

// Transfer handles POST /api/v1/entitlements/transfer
func (h *Handler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	contentID, err := domain.ParseUint256(req.ContentID)
	if err != nil {
		respondBadRequest(c, "Invalid content_id", err.Error())
		return
	}
	from, err := domain.ParseAddress(req.From)
	if err != nil {
		respondBadRequest(c, "Invalid from", err.Error())
		return
	}
	to, err := domain.ParseAddress(req.To)
	if err != nil {
		respondBadRequest(c, "Invalid to", err.Error())
		return
	}
	amount, err := domain.ParseUint256(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		respondBadRequest(c, "Invalid amount", "amount must be a positive integer")
		return
	}

	result, err := h.registry.Transfer(c.Request.Context(), from, to, contentID, amount)
	if err != nil {
		respondRegistryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"content_id":         contentID.String(),
		"from":               from.Hex(),
		"to":                 to.Hex(),
		"amount":             amount.String(),
		"remaining_validity": result.RemainingValidity,
		"royalty":            result.Royalty.String(),
	})
}

// Withdraw handles POST /api/v1/providers/:address/withdrawals
func (h *Handler) Withdraw(c *gin.Context) {
	provider, err := domain.ParseAddress(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid provider address", err.Error())
		return
	}

	amount, err := h.registry.WithdrawFee(c.Request.Context(), provider)
	if err != nil {
		respondRegistryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"service_provider": provider.Hex(),
		"withdrawn":        amount.String(),
	})
}

// FeeBalance handles GET /api/v1/providers/:address/fees
func (h *Handler) FeeBalance(c *gin.Context) {
	provider, err := domain.ParseAddress(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid provider address", err.Error())
		return
	}

	balance, err := h.registry.FeeBalance(c.Request.Context(), provider)
	if err != nil {
		respondRegistryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"service_provider": provider.Hex(),
		"withdrawable":     balance.String(),
	})
}

// Validity handles GET /api/v1/entitlements/:holder/:content_id/validity
func (h *Handler) Validity(c *gin.Context) {
	holder, contentID, ok := h.holdingParams(c)
	if !ok {
		return
	}

	remaining, err := h.registry.CheckValidityLeft(c.Request.Context(), holder, contentID)
	if err != nil {
		respondRegistryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"holder":             holder.Hex(),
		"content_id":         contentID.String(),
		"remaining_validity": remaining,
	})
}

// Royalty handles GET /api/v1/entitlements/:holder/:content_id/royalty
func (h *Handler) Royalty(c *gin.Context) {
	holder, contentID, ok := h.holdingParams(c)
	if !ok {
		return
	}

	royalty, err := h.registry.CheckNetRoyalty(c.Request.Context(), holder, contentID)
	if err != nil {
		respondRegistryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"holder":     holder.Hex(),
		"content_id": contentID.String(),
		"royalty":    royalty.String(),
	})
}

// Content handles GET /api/v1/contents/:content_id
func (h *Handler) Content(c *gin.Context) {
	contentID, err := domain.ParseUint256(c.Param("content_id"))
	if err != nil {
		respondBadRequest(c, "Invalid content_id", err.Error())
		return
	}

	record, err := h.registry.Content(c.Request.Context(), contentID)
	if err != nil {
		respondRegistryError(c, err)
		return
	}

	c.JSON(http.StatusOK, contentResponse{
		ContentID:       record.ContentID.String(),
		ServiceProvider: record.ServiceProvider.Hex(),
		UnitFee:         record.UnitFee.String(),
		RoyaltyRate:     record.RoyaltyRateMilliPercent.String(),
		UnitValidity:    record.UnitValidity,
		TotalSupply:     record.TotalSupply.String(),
		Name:            record.Name,
		URI:             record.URI,
	})
}

// SetURI handles PUT /api/v1/contents/:content_id/uri
func (h *Handler) SetURI(c *gin.Context) {
	contentID, err := domain.ParseUint256(c.Param("content_id"))
	if err != nil {
		respondBadRequest(c, "Invalid content_id", err.Error())
		return
	}

	var req setURIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	caller, err := domain.ParseAddress(req.Caller)
	if err != nil {
		respondBadRequest(c, "Invalid caller", err.Error())
		return
	}

	if err := h.registry.SetURI(c.Request.Context(), caller, contentID, req.URI); err != nil {
		respondRegistryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"content_id": contentID.String(),
		"uri":        req.URI,
	})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) holdingParams(c *gin.Context) (common.Address, *big.Int, bool) {
	holder, err := domain.ParseAddress(c.Param("holder"))
	if err != nil {
		respondBadRequest(c, "Invalid holder", err.Error())
		return common.Address{}, nil, false
	}
	contentID, err := domain.ParseUint256(c.Param("content_id"))
	if err != nil {
		respondBadRequest(c, "Invalid content_id", err.Error())
		return common.Address{}, nil, false
	}
	return holder, contentID, true
}
