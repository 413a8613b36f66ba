package httpgin

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/tablyhq/tably/internal/domain"
	redisrepo "github.com/tablyhq/tably/internal/repository/redis"
	"github.com/tablyhq/tably/internal/service"
	"github.com/tablyhq/tably/internal/service/analytics"
	"github.com/tablyhq/tably/internal/service/tables"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	limiter *redisrepo.SlidingWindowLimiter,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rl := RateLimitMiddleware(limiter)

	// Tables
	r.GET("/tables", handleListTables(svcs))
	r.GET("/tables/stats", handleTableStats(svcs))
	r.GET("/tables/:id", handleGetTable(svcs))
	r.PATCH("/tables/:id/status", rl, handleUpdateStatus(svcs))
	r.POST("/tables/:id/reserve", rl, handleReserve(svcs))
	r.POST("/tables/:id/quick-seat", rl, handleQuickSeat(svcs, idem))
	r.POST("/tables/:id/free", rl, handleFree(svcs))
	r.POST("/tables/:id/cancel", rl, handleFree(svcs))

	// Analytics
	r.GET("/analytics/today", handleAnalyticsToday(svcs))
	r.GET("/analytics/daily/:date", handleAnalyticsDaily(svcs))
	r.GET("/analytics/overview", handleAnalyticsOverview(svcs))
	r.GET("/analytics/peak-hours", handlePeakHours(svcs))

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  List tables
// @Success  200  {array}  domain.Table
// @Router   /tables [get]
func handleListTables(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		all := svcs.Tables.List(c.Request.Context())

		b, err := json.Marshal(all)
		if err != nil {
			respondErr(c, err)
			return
		}
		respondCached(c, b)
	}
}

// @Summary  Table counts by status
// @Success  200  {object}  Envelope
// @Router   /tables/stats [get]
func handleTableStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := svcs.Tables.Stats(c.Request.Context())
		c.JSON(http.StatusOK, envelope(stats))
	}
}

// @Summary  Get table
// @Param    id  path  int  true  "Table ID"
// @Success  200  {object}  domain.Table
// @Failure  404  {object}  ErrorResponse
// @Router   /tables/{id} [get]
func handleGetTable(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tableID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		t, err := svcs.Tables.Get(c.Request.Context(), tableID)
		if err != nil {
			respondErr(c, err)
			return
		}
		if t == nil {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "table not found"})
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// @Summary  Set table status
// @Param    id   path  int                  true  "Table ID"
// @Param    req  body  UpdateStatusRequest  true  "payload"
// @Success  200  {object}  domain.Table
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /tables/{id}/status [patch]
func handleUpdateStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tableID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		status, ok := domain.ParseStatus(req.Status)
		if !ok {
			badRequest(c, "invalid status")
			return
		}
		t, err := svcs.Tables.Transition(c.Request.Context(), tableID, domain.AsStatus(status))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// @Summary  Reserve table
// @Param    id   path  int             true  "Table ID"
// @Param    req  body  ReserveRequest  true  "payload"
// @Success  200  {object}  domain.Table
// @Failure  404  {object}  ErrorResponse
// @Router   /tables/{id}/reserve [post]
func handleReserve(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tableID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req ReserveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		t, err := svcs.Tables.Reserve(c.Request.Context(), tableID, domain.Reservation{
			CustomerName: req.CustomerName,
			Phone:        req.Phone,
			Guests:       req.Guests,
			Time:         req.Time,
			Message:      req.Message,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// @Summary  Quick-seat guests (idempotent)
// @Param    id   path  int               true   "Table ID"
// @Param    req  body  QuickSeatRequest  false  "payload"
// @Header   200 {string} Idempotency-Key "echo"
// @Success  200  {object}  domain.Table
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse "idem in progress"
// @Router   /tables/{id}/quick-seat [post]
func handleQuickSeat(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		tableID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req QuickSeatRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemSeat(tableID, idemKey)

			if payload, ok, _ := idem.GetResult(
				c.Request.Context(),
				idemStorageKey,
			); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(
					http.StatusOK,
					"application/json; charset=utf-8",
					[]byte(payload),
				)
				return
			}

			locked, err := idem.AcquireLock(
				c.Request.Context(),
				idemStorageKey,
				60*time.Second,
			)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(
					c.Request.Context(),
					idemStorageKey,
				); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(
						http.StatusOK,
						"application/json; charset=utf-8",
						[]byte(payload),
					)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(
					http.StatusConflict,
					ErrorResponse{Error: "idempotency key in progress"},
				)
				return
			}
		}

		t, err := svcs.Tables.Seat(c.Request.Context(), tableID, req.Guests)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(t)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusOK, t)
	}
}

// @Summary  Free table / cancel reservation
// @Param    id  path  int  true  "Table ID"
// @Success  200  {object}  domain.Table
// @Failure  404  {object}  ErrorResponse
// @Router   /tables/{id}/free [post]
func handleFree(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tableID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		t, err := svcs.Tables.Free(c.Request.Context(), tableID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// @Summary  Today's analytics
// @Success  200  {object}  Envelope
// @Router   /analytics/today [get]
func handleAnalyticsToday(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := svcs.Analytics.Today(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, envelope(snap))
	}
}

// @Summary  Daily analytics
// @Param    date  path  string  true  "Date (YYYY-MM-DD)"
// @Success  200  {object}  Envelope
// @Failure  400  {object}  ErrorResponse
// @Router   /analytics/daily/{date} [get]
func handleAnalyticsDaily(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := svcs.Analytics.Daily(c.Request.Context(), c.Param("date"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, envelope(snap))
	}
}

// @Summary  Analytics overview (today/week/month)
// @Success  200  {object}  Envelope
// @Router   /analytics/overview [get]
func handleAnalyticsOverview(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		overview, err := svcs.Analytics.Overview(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		b, err := json.Marshal(envelope(overview))
		if err != nil {
			respondErr(c, err)
			return
		}
		respondCached(c, b)
	}
}

// @Summary  Peak hours over trailing days
// @Param    days  query  int  false  "window size, 1-30"  default(7)
// @Success  200  {object}  Envelope
// @Failure  400  {object}  ErrorResponse
// @Router   /analytics/peak-hours [get]
func handlePeakHours(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
		if err != nil {
			badRequest(c, "invalid days")
			return
		}
		report, err := svcs.Analytics.PeakHours(c.Request.Context(), days)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, envelope(report))
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	// tables service
	case errors.Is(err, tables.ErrTableNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "table not found"})
		return
	// analytics service
	case errors.Is(err, analytics.ErrInvalidDate):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid date format, use YYYY-MM-DD"})
		return
	case errors.Is(err, analytics.ErrInvalidDaysRange):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "days parameter must be between 1 and 30"})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
