package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	domainerror "github.com/propertyledger/backend/internal/domain/error"
	"github.com/propertyledger/backend/internal/integration/entrypoint/dto"
)

// handleDomainError maps coded domain errors to HTTP responses.
func handleDomainError(ctx *gin.Context, err error) {
	var (
		ledgerErr   *domainerror.LedgerError
		rollupErr   *domainerror.RollupError
		propertyErr *domainerror.PropertyError
		reconErr    *domainerror.ReconciliationError
	)

	switch {
	case errors.As(err, &propertyErr):
		ctx.JSON(statusForPropertyError(propertyErr.Code), dto.ErrorResponse{
			Error: propertyErr.Message,
			Code:  string(propertyErr.Code),
		})
	case errors.As(err, &ledgerErr):
		ctx.JSON(statusForLedgerError(ledgerErr.Code), dto.ErrorResponse{
			Error: ledgerErr.Message,
			Code:  string(ledgerErr.Code),
		})
	case errors.As(err, &rollupErr):
		ctx.JSON(statusForRollupError(rollupErr.Code), dto.ErrorResponse{
			Error: rollupErr.Message,
			Code:  string(rollupErr.Code),
		})
	case errors.As(err, &reconErr):
		slog.Error("Reconciliation request failed", "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   reconErr.Message,
			Code:    string(reconErr.Code),
			Details: "rollups may be incomplete until reconciliation is run again",
		})
	default:
		slog.Error("Request failed", "path", ctx.FullPath(), "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "An internal error occurred",
		})
	}
}

func statusForPropertyError(code domainerror.PropertyErrorCode) int {
	switch code {
	case domainerror.ErrCodePropertyNotFound:
		return http.StatusNotFound
	case domainerror.ErrCodeNotPropertyOwner:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func statusForLedgerError(code domainerror.LedgerErrorCode) int {
	switch code {
	case domainerror.ErrCodeEntryNotFound,
		domainerror.ErrCodeParentNotFound:
		return http.StatusNotFound
	case domainerror.ErrCodeInvalidEntryKind,
		domainerror.ErrCodeInvalidAmount,
		domainerror.ErrCodeInvalidEntryDate,
		domainerror.ErrCodeDescriptionLong:
		return http.StatusBadRequest
	case domainerror.ErrCodeEntryNotPending,
		domainerror.ErrCodeEntryNotAccepted,
		domainerror.ErrCodeParentNotAccepted,
		domainerror.ErrCodeLockNotObtained:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func statusForRollupError(code domainerror.RollupErrorCode) int {
	switch code {
	case domainerror.ErrCodeInvalidStatisticKind,
		domainerror.ErrCodeInvalidBucket:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func unauthenticated(ctx *gin.Context) {
	ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{
		Error: "User not authenticated",
		Code:  string(domainerror.ErrCodeMissingToken),
	})
}

func badRequest(ctx *gin.Context, message string, err error) {
	response := dto.ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	ctx.JSON(http.StatusBadRequest, response)
}
