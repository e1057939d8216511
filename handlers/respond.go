package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/LovationAdmin/feeding-api/permissions"
	"github.com/LovationAdmin/feeding-api/services"
	"github.com/LovationAdmin/feeding-api/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaginatedResponse is the body of every list endpoint.
type PaginatedResponse struct {
	Data        interface{} `json:"data"`
	TotalRows   int64       `json:"totalRows"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	PageSize    int         `json:"pageSize"`
}

// pageFromQuery reads ?page= and ?page_size=. Out-of-range values fall back
// to the defaults.
func pageFromQuery(c *gin.Context) services.Page {
	number, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("page_size"))
	return services.Page{Number: number, Size: size}.Normalize()
}

func newPaginatedResponse(data interface{}, total int64, page services.Page) PaginatedResponse {
	totalPages := 0
	if total > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(page.Size)))
	}
	return PaginatedResponse{
		Data:        data,
		TotalRows:   total,
		TotalPages:  totalPages,
		CurrentPage: page.Number,
		PageSize:    page.Size,
	}
}

// parseID reads the :id path parameter, answering 404 when it is not a
// positive integer.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
		return 0, false
	}
	return id, true
}

// decodeBody strictly decodes the request body into dst.
func decodeBody(c *gin.Context, dst interface{}, readOnly []string) error {
	raw, err := c.GetRawData()
	if err != nil {
		return validation.Errors{validation.NonFieldErrors: "Could not read request body."}
	}
	return validation.DecodeStrict(raw, dst, readOnly...)
}

// respondError maps err onto the status codes of the API. Only
// infrastructure failures are logged, and their detail never reaches the
// client.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	if errs, ok := validation.AsErrors(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
		return
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, permissions.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication credentials were not provided."})
	case errors.Is(err, permissions.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to perform this action."})
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
