package httpgin

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablyhq/tably/internal/domain"
	redisx "github.com/tablyhq/tably/internal/redis"
	redisrepo "github.com/tablyhq/tably/internal/repository/redis"
	"github.com/tablyhq/tably/internal/service"
)

func newTestRouter(t *testing.T) (*gin.Engine, *goredis.Client) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svcs := service.NewServices(
		redisrepo.NewTableStore(client),
		redisrepo.NewVisitorStore(client),
		redisx.NewTablesPubSub(client),
		logger,
		service.Config{},
	)
	require.NoError(t, svcs.Tables.Seed(context.Background()))

	idem := redisrepo.NewIdempotencyStore(client, time.Hour)

	return NewRouter(svcs, idem, nil, logger), client
}

func doRequest(r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_ListTables(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(r, http.MethodGet, "/tables", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var tables []domain.Table
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tables))
	assert.Len(t, tables, 12)
	assert.NotEmpty(t, w.Header().Get("ETag"))
}

func TestRouter_ListTables_Revalidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(r, http.MethodGet, "/tables", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=15", w.Header().Get("Cache-Control"))

	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)
	assert.True(t, strings.HasPrefix(tag, `W/"`), "content ETag must be weak")

	w = doRequest(r, http.MethodGet, "/tables", "", map[string]string{"If-None-Match": tag})
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.Bytes())

	// any table change invalidates the tag
	w = doRequest(r, http.MethodPost, "/tables/1/quick-seat", `{"guests":2}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/tables", "", map[string]string{"If-None-Match": tag})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, tag, w.Header().Get("ETag"))
}

func TestRouter_GetTable(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(r, http.MethodGet, "/tables/3", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var table domain.Table
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &table))
	assert.Equal(t, int64(3), table.ID)

	w = doRequest(r, http.MethodGet, "/tables/99", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(r, http.MethodGet, "/tables/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_UpdateStatus(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(r, http.MethodPatch, "/tables/1/status", `{"status":"RESERVED"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var table domain.Table
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &table))
	assert.Equal(t, domain.TableReserved, table.Status)

	w = doRequest(r, http.MethodPatch, "/tables/1/status", `{"status":"BUSY"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodPatch, "/tables/99/status", `{"status":"OCCUPIED"}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_QuickSeat_Idempotent(t *testing.T) {
	r, client := newTestRouter(t)

	headers := map[string]string{"Idempotency-Key": "abc-123"}

	w := doRequest(r, http.MethodPost, "/tables/3/quick-seat", `{"guests":2}`, headers)
	require.Equal(t, http.StatusOK, w.Code)

	var first domain.Table
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.Equal(t, domain.TableOccupied, first.Status)
	require.NotNil(t, first.Visitor)

	// replay returns the stored response, same visitor id
	w = doRequest(r, http.MethodPost, "/tables/3/quick-seat", `{"guests":2}`, headers)
	require.Equal(t, http.StatusOK, w.Code)

	var second domain.Table
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, first.Visitor.VisitorID, second.Visitor.VisitorID)

	// only one ledger entry for today
	day := domain.DayKey(time.Now())
	entries, err := client.LRange(context.Background(), redisrepo.KeyVisitorDay(day), 0, -1).Result()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRouter_ReserveThenFree(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/tables/5/reserve",
		`{"customerName":"Dana","guests":4,"time":"19:00"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var table domain.Table
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &table))
	assert.Equal(t, domain.TableReserved, table.Status)
	require.NotNil(t, table.Reservation)
	assert.Equal(t, 4, table.Reservation.Guests)

	w = doRequest(r, http.MethodPost, "/tables/5/cancel", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	table = domain.Table{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &table))
	assert.Equal(t, domain.TableAvailable, table.Status)
	assert.Nil(t, table.Reservation)
}

func TestRouter_TableStats(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/tables/1/quick-seat", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/tables/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool              `json:"success"`
		Data    domain.TableStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 12, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Occupied)
}

func TestRouter_AnalyticsValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(r, http.MethodGet, "/analytics/daily/2024-02-30", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodGet, "/analytics/peak-hours?days=45", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodGet, "/analytics/peak-hours?days=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_AnalyticsToday(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/tables/3/quick-seat", `{"guests":2}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/analytics/today", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                  `json:"success"`
		Data    domain.DailyAnalytics `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Data.TotalVisitors)
	assert.Equal(t, 1, resp.Data.ActiveSessions)
	require.Len(t, resp.Data.PeakHours, 24)
}

func TestRouter_Healthz(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
