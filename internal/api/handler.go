package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tickerplot/nsepulse/internal/domain/dto"
	"github.com/tickerplot/nsepulse/internal/service"
)

// Handler provides HTTP handlers over the ingested market data.
//
// Responsibilities:
//   - Validate incoming HTTP query parameters
//   - Delegate to the service layer for data access
//   - Translate results into response DTOs with appropriate status codes
type Handler struct {
	svc service.HistoryService
}

// NewHandler constructs a Handler ready to be registered with the router.
func NewHandler(svc service.HistoryService) *Handler {
	return &Handler{svc: svc}
}

// GetHistory handles GET /api/v1/history requests.
//
// GetHistory godoc
// @Summary      Get daily price history for a symbol
// @Description  Returns OHLC, volume and delivery per day, ascending by date
// @Tags         history
// @Produce      json
// @Param        symbol  query     string  true   "Stock symbol" example(SBIN)
// @Param        from    query     string  false  "Start date in YYYY-MM-DD" example(2021-01-04)
// @Param        to      query     string  false  "End date in YYYY-MM-DD" example(2021-12-31)
// @Success      200     {object}  dto.HistoryResponse    "Success"
// @Failure      400     {object}  dto.ErrorResponse      "Bad Request"
// @Failure      404     {object}  dto.ErrorResponse      "Not Found"
// @Failure      500     {object}  dto.ErrorResponse      "Internal Error"
// @Router       /api/v1/history [get]
func (h *Handler) GetHistory(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("symbol is required", nil))
		return
	}

	from, ok := queryDate(c, "from")
	if !ok {
		return
	}
	to, ok := queryDate(c, "to")
	if !ok {
		return
	}
	if from != nil && to != nil && from.After(*to) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("from is after to", nil))
		return
	}

	records, err := h.svc.GetDailyHistory(c.Request.Context(), symbol, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch history", err))
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("no data found", nil))
		return
	}

	c.JSON(http.StatusOK, dto.NewHistoryResponse(symbol, records))
}

// GetLedger handles GET /api/v1/ledger/:date requests.
//
// GetLedger godoc
// @Summary      Get the download attempt record for a date
// @Description  Shows per-source outcome and error classification of the last attempt
// @Tags         ledger
// @Produce      json
// @Param        date  path      string  true  "Date in YYYY-MM-DD" example(2021-01-04)
// @Success      200   {object}  dto.LedgerResponse   "Success"
// @Failure      400   {object}  dto.ErrorResponse    "Bad Request"
// @Failure      404   {object}  dto.ErrorResponse    "Not Found"
// @Failure      500   {object}  dto.ErrorResponse    "Internal Error"
// @Router       /api/v1/ledger/{date} [get]
func (h *Handler) GetLedger(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid date format, expected YYYY-MM-DD", err))
		return
	}

	att, err := h.svc.GetAttempt(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch ledger entry", err))
		return
	}
	if att == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("no attempt recorded for date", nil))
		return
	}

	c.JSON(http.StatusOK, dto.NewLedgerResponse(att))
}

// queryDate parses an optional YYYY-MM-DD query parameter. On a malformed
// value it writes the 400 response itself and reports !ok.
func queryDate(c *gin.Context, name string) (*time.Time, bool) {
	s := c.Query(name)
	if s == "" {
		return nil, true
	}
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid "+name+" format, expected YYYY-MM-DD", err))
		return nil, false
	}
	return &parsed, true
}
