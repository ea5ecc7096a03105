package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/management-backend/services"
	"go.uber.org/zap"
)

// errorStatus maps a stock or catalog error to its HTTP status.
// Unknown errors are internal.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrStockNotFound),
		errors.Is(err, services.ErrReservationNotExists),
		errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrLocationNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrProductAlreadyExists),
		errors.Is(err, services.ErrProductSkuAlreadyExists),
		errors.Is(err, services.ErrProductAlreadyInactive),
		errors.Is(err, services.ErrLocationAlreadyExists),
		errors.Is(err, services.ErrReservationInactive):
		return http.StatusConflict
	case errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrProductInactive):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidMovementType):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes err with the status errorStatus picks. Internal
// errors are logged and their cause is not exposed.
func respondError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func respondServiceError(c *gin.Context, svcErr *services.ServiceError) {
	c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
}

// parsePaginationParams extracts and validates page/limit query params.
func parsePaginationParams(c *gin.Context) (int, int) {
	const maxLimit = 100
	page, limit := 1, 10
	if p, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil && l > 0 {
		limit = l
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// uintParam reads a positive numeric path parameter. On failure it has
// already written a 400.
func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(v), true
}

// optionalUintQuery returns nil when the query key is absent.
func optionalUintQuery(c *gin.Context, key string) (*uint, bool) {
	raw, present := c.GetQuery(key)
	if !present || raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + key})
		return nil, false
	}
	id := uint(v)
	return &id, true
}
