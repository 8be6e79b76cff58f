package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/propertyledger/backend/internal/application/usecase/reconciliation"
	"github.com/propertyledger/backend/internal/integration/entrypoint/dto"
)

// ReconciliationController handles the reconciliation admin endpoints.
type ReconciliationController struct {
	reconcileUseCase  *reconciliation.ReconcileUseCase
	driftCheckUseCase *reconciliation.DriftCheckUseCase
}

// NewReconciliationController creates a new reconciliation controller instance.
func NewReconciliationController(
	reconcileUseCase *reconciliation.ReconcileUseCase,
	driftCheckUseCase *reconciliation.DriftCheckUseCase,
) *ReconciliationController {
	return &ReconciliationController{
		reconcileUseCase:  reconcileUseCase,
		driftCheckUseCase: driftCheckUseCase,
	}
}

// Reconcile handles POST /admin/reconcile requests.
func (c *ReconciliationController) Reconcile(ctx *gin.Context) {
	input, ok := bindReconcileInput(ctx)
	if !ok {
		return
	}

	output, err := c.reconcileUseCase.Execute(ctx.Request.Context(), input)
	if err != nil {
		handleDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToReconcileResponse(output))
}

// Drift handles POST /admin/drift requests.
func (c *ReconciliationController) Drift(ctx *gin.Context) {
	input, ok := bindReconcileInput(ctx)
	if !ok {
		return
	}

	output, err := c.driftCheckUseCase.Execute(ctx.Request.Context(), input)
	if err != nil {
		handleDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToDriftCheckResponse(output))
}

// bindReconcileInput accepts an empty body as "every property".
func bindReconcileInput(ctx *gin.Context) (reconciliation.ReconcileInput, bool) {
	var req dto.ReconcileRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			badRequest(ctx, "Invalid request body", err)
			return reconciliation.ReconcileInput{}, false
		}
	}

	var input reconciliation.ReconcileInput
	if req.PropertyID != nil {
		id, err := uuid.Parse(*req.PropertyID)
		if err != nil {
			badRequest(ctx, "Invalid property ID format", err)
			return reconciliation.ReconcileInput{}, false
		}
		input.PropertyID = &id
	}
	return input, true
}
