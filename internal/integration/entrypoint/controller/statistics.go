package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/propertyledger/backend/internal/application/usecase/query"
	"github.com/propertyledger/backend/internal/domain/entity"
	"github.com/propertyledger/backend/internal/integration/entrypoint/dto"
	"github.com/propertyledger/backend/internal/integration/entrypoint/middleware"
)

// StatisticsController handles the balance and rollup read endpoints.
type StatisticsController struct {
	getBalanceUseCase  *query.GetBalanceUseCase
	queryRollupUseCase *query.QueryRollupUseCase
}

// NewStatisticsController creates a new statistics controller instance.
func NewStatisticsController(
	getBalanceUseCase *query.GetBalanceUseCase,
	queryRollupUseCase *query.QueryRollupUseCase,
) *StatisticsController {
	return &StatisticsController{
		getBalanceUseCase:  getBalanceUseCase,
		queryRollupUseCase: queryRollupUseCase,
	}
}

// GetBalance handles GET /properties/:id/balance requests.
func (c *StatisticsController) GetBalance(ctx *gin.Context) {
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

	output, err := c.getBalanceUseCase.Execute(ctx.Request.Context(), query.GetBalanceInput{
		UserID:     userID,
		PropertyID: propertyID,
	})
	if err != nil {
		handleDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.BalanceResponse{
		PropertyID: output.PropertyID.String(),
		Balance:    output.Balance.StringFixed(entity.AmountDecimals),
	})
}

// QueryRollups handles GET /properties/:id/rollups requests.
// Query parameters: kind (optional), year (optional), month (requires year).
func (c *StatisticsController) QueryRollups(ctx *gin.Context) {
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

	input := query.QueryRollupInput{
		UserID:     userID,
		PropertyID: propertyID,
	}

	if kindStr := ctx.Query("kind"); kindStr != "" {
		kind := entity.StatisticKind(strings.ToUpper(kindStr))
		input.Kind = &kind
	}
	if yearStr := ctx.Query("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			badRequest(ctx, "Invalid year", err)
			return
		}
		input.Year = &year
	}
	if monthStr := ctx.Query("month"); monthStr != "" {
		month, err := strconv.Atoi(monthStr)
		if err != nil {
			badRequest(ctx, "Invalid month", err)
			return
		}
		input.Month = &month
	}

	output, err := c.queryRollupUseCase.Execute(ctx.Request.Context(), input)
	if err != nil {
		handleDomainError(ctx, err)
		return
	}

	rollups := make([]dto.RollupResponse, len(output.Records))
	for i, record := range output.Records {
		rollups[i] = dto.ToRollupResponse(record)
	}

	ctx.JSON(http.StatusOK, dto.RollupListResponse{
		PropertyID: propertyID.String(),
		Rollups:    rollups,
	})
}
