package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propertyledger/backend/internal/application/usecase/ledger"
	"github.com/propertyledger/backend/internal/domain/entity"
	"github.com/propertyledger/backend/internal/integration/entrypoint/dto"
	"github.com/propertyledger/backend/internal/integration/entrypoint/middleware"
)

// EntryController handles ledger entry endpoints.
type EntryController struct {
	createUseCase *ledger.CreateEntryUseCase
	acceptUseCase *ledger.AcceptEntryUseCase
	updateUseCase *ledger.UpdateEntryUseCase
	deleteUseCase *ledger.DeleteEntryUseCase
}

// NewEntryController creates a new entry controller instance.
func NewEntryController(
	createUseCase *ledger.CreateEntryUseCase,
	acceptUseCase *ledger.AcceptEntryUseCase,
	updateUseCase *ledger.UpdateEntryUseCase,
	deleteUseCase *ledger.DeleteEntryUseCase,
) *EntryController {
	return &EntryController{
		createUseCase: createUseCase,
		acceptUseCase: acceptUseCase,
		updateUseCase: updateUseCase,
		deleteUseCase: deleteUseCase,
	}
}

// Create handles POST /properties/:id/entries requests.
func (c *EntryController) Create(ctx *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		unauthenticated(ctx)
		return
	}

	propertyID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		badRequest(ctx, "Invalid property ID format", err)
		return
	}

	var req dto.CreateEntryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		badRequest(ctx, "Invalid amount", err)
		return
	}
	ledgerDate, err := time.Parse(dto.DateLayout, req.LedgerDate)
	if err != nil {
		badRequest(ctx, "Invalid ledger_date format, expected YYYY-MM-DD", err)
		return
	}

	input := ledger.CreateEntryInput{
		UserID:      userID,
		PropertyID:  propertyID,
		Kind:        entity.EntryKind(req.Kind),
		Amount:      amount,
		LedgerDate:  ledgerDate,
		Description: req.Description,
		ParentID:    req.ParentID,
	}
	if req.AccountingDate != "" {
		accountingDate, err := time.Parse(dto.DateLayout, req.AccountingDate)
		if err != nil {
			badRequest(ctx, "Invalid accounting_date format, expected YYYY-MM-DD", err)
			return
		}
		input.AccountingDate = &accountingDate
	}

	output, err := c.createUseCase.Execute(ctx.Request.Context(), input)
	if err != nil {
		handleDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.ToEntryResponse(output.Entry))
}

// Accept handles POST /entries/:id/accept requests.
func (c *EntryController) Accept(ctx *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		unauthenticated(ctx)
		return
	}

	entryID, ok := parseEntryID(ctx)
	if !ok {
		return
	}

	output, err := c.acceptUseCase.Execute(ctx.Request.Context(), ledger.AcceptEntryInput{
		UserID:  userID,
		EntryID: entryID,
	})
	if err != nil {
		handleDomainError(ctx, err)
		return
	}

	// Maintenance runs asynchronously; the balance is filled in once it lands.
	ctx.JSON(http.StatusAccepted, dto.ToEntryResponse(output.Entry))
}

// Update handles PATCH /entries/:id requests.
func (c *EntryController) Update(ctx *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		unauthenticated(ctx)
		return
	}

	entryID, ok := parseEntryID(ctx)
	if !ok {
		return
	}

	var req dto.UpdateEntryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "Invalid request body", err)
		return
	}

	input := ledger.UpdateEntryInput{
		UserID:      userID,
		EntryID:     entryID,
		Description: req.Description,
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			badRequest(ctx, "Invalid amount", err)
			return
		}
		input.Amount = &amount
	}
	if req.LedgerDate != nil {
		date, err := time.Parse(dto.DateLayout, *req.LedgerDate)
		if err != nil {
			badRequest(ctx, "Invalid ledger_date format, expected YYYY-MM-DD", err)
			return
		}
		input.LedgerDate = &date
	}
	if req.AccountingDate != nil {
		date, err := time.Parse(dto.DateLayout, *req.AccountingDate)
		if err != nil {
			badRequest(ctx, "Invalid accounting_date format, expected YYYY-MM-DD", err)
			return
		}
		input.AccountingDate = &date
	}

	output, err := c.updateUseCase.Execute(ctx.Request.Context(), input)
	if err != nil {
		handleDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToEntryResponse(output.Entry))
}

// Delete handles DELETE /entries/:id requests.
func (c *EntryController) Delete(ctx *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		unauthenticated(ctx)
		return
	}

	entryID, ok := parseEntryID(ctx)
	if !ok {
		return
	}

	if err := c.deleteUseCase.Execute(ctx.Request.Context(), ledger.DeleteEntryInput{
		UserID:  userID,
		EntryID: entryID,
	}); err != nil {
		handleDomainError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func parseEntryID(ctx *gin.Context) (int64, bool) {
	entryID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || entryID <= 0 {
		badRequest(ctx, "Invalid entry ID", err)
		return 0, false
	}
	return entryID, true
}
