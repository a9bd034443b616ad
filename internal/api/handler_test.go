package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"santamoment/internal/api"
	"santamoment/internal/config"
	"santamoment/internal/logger"
	"santamoment/internal/models"
	"santamoment/internal/order"
	"santamoment/internal/order/gateway"
	"santamoment/internal/order/redis"
	"santamoment/internal/quality"
	"santamoment/internal/queue"
	"santamoment/internal/store"
)

const testAdminKey = "test-admin-key"

// stubGateway approves every payment whose key starts with "pi_ok".
type stubGateway struct{}

func (stubGateway) Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (*gateway.Confirmation, error) {
	if len(paymentKey) < 5 || paymentKey[:5] != "pi_ok" {
		return nil, gateway.ErrDeclined
	}
	return &gateway.Confirmation{PaymentKey: paymentKey, Amount: amount}, nil
}

func setupServer(t *testing.T) (*httptest.Server, *config.Config) {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{BaseURL: "http://localhost:8080"},
		Upload: config.UploadConfig{
			Dir:          t.TempDir(),
			MaxSizeBytes: 10 * 1024 * 1024,
		},
		Quality: config.QualityConfig{
			BrightnessMin:  50,
			BrightnessMax:  210,
			SharpnessMin:   12,
			MinWidth:       400,
			MinHeight:      400,
			WorkingMaxSide: 200,
		},
		Admin: config.AdminConfig{Key: testAdminKey},
	}

	db, err := store.Open(config.StoreConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "orders.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewLogger()
	estimator := queue.NewEstimator(30, time.Now().Add(24*time.Hour))
	service := order.NewOrderService(db, stubGateway{}, redis.NoopLocker{}, nil, nil, estimator, config.TopicConfig{}, log)

	handler := api.NewHandler(service, quality.NewAnalyzer(cfg.Quality), cfg, log)
	srv := httptest.NewServer(handler.Routes())
	t.Cleanup(srv.Close)
	return srv, cfg
}

func makeChecker(w, h, block int, a, b uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := a
			if ((x/block)+(y/block))%2 == 1 {
				v = b
			}
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func uploadPhoto(t *testing.T, srv *httptest.Server, payload []byte) *http.Response {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("photo", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(srv.URL+"/api/upload", writer.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeJSON(t *testing.T, resp *http.Response, into interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func TestUpload_GoodPhotoAccepted(t *testing.T) {
	srv, _ := setupServer(t)

	resp := uploadPhoto(t, srv, encodePNG(t, makeChecker(800, 600, 8, 120, 140)))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got api.UploadResponse
	decodeJSON(t, resp, &got)
	assert.True(t, got.Success)
	assert.NotEmpty(t, got.Filename)
	require.NotNil(t, got.Quality)
	assert.Equal(t, 100, got.Quality.Score)
}

func TestUpload_DarkPhotoRejected(t *testing.T) {
	srv, _ := setupServer(t)

	resp := uploadPhoto(t, srv, encodePNG(t, makeChecker(800, 600, 8, 10, 30)))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got api.UploadResponse
	decodeJSON(t, resp, &got)
	assert.False(t, got.Success)
	assert.Empty(t, got.Filename)
	assert.Equal(t, "The photo is too dark or too bright", got.Message)
}

func TestUpload_UndecodablePassesThroughDegraded(t *testing.T) {
	srv, _ := setupServer(t)

	resp := uploadPhoto(t, srv, []byte("not an image at all"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got api.UploadResponse
	decodeJSON(t, resp, &got)
	assert.True(t, got.Success)
	assert.True(t, got.Degraded)
	assert.NotEmpty(t, got.Filename)
	assert.Nil(t, got.Quality)
}

func TestUpload_MissingFile(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Post(srv.URL+"/api/upload", "multipart/form-data", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func prepareOrder(t *testing.T, srv *httptest.Server) models.PrepareResponse {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/payment/prepare", models.PrepareRequest{
		PackageID:     "core",
		AddOns:        []string{"certificate", "rush"},
		ChildInfo:     models.ChildInfo{Name: "Mina", Age: "3-5"},
		CustomerEmail: "parent@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.PrepareResponse
	decodeJSON(t, resp, &got)
	return got
}

func TestPrepareThenGetOrder(t *testing.T) {
	srv, _ := setupServer(t)

	prepared := prepareOrder(t, srv)
	assert.Contains(t, prepared.OrderID, "SANTA-")
	assert.Equal(t, int64(17700), prepared.Amount)

	resp, err := http.Get(srv.URL + "/api/orders/" + prepared.OrderID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.OrderWithQueue
	decodeJSON(t, resp, &got)
	assert.Equal(t, prepared.OrderID, got.Order.OrderID)
	assert.Equal(t, models.StatusPending, got.Order.Status)
	assert.Nil(t, got.Queue, "pending orders have no queue projection")
}

func TestGetOrder_NotFound(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/api/orders/SANTA-missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConfirmPayment_FullFlow(t *testing.T) {
	srv, _ := setupServer(t)
	prepared := prepareOrder(t, srv)

	resp := postJSON(t, srv.URL+"/api/payments/confirm", models.ConfirmRequest{
		PaymentKey: "pi_ok_123",
		OrderID:    prepared.OrderID,
		Amount:     prepared.Amount,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.ConfirmResponse
	decodeJSON(t, resp, &got)
	assert.True(t, got.Success)
	assert.Equal(t, models.PaymentPaid, got.Order.PaymentStatus)
	assert.Equal(t, models.StatusProcessing, got.Order.Status)

	// queue projection appears once the order is processing
	orderResp, err := http.Get(srv.URL + "/api/orders/" + prepared.OrderID)
	require.NoError(t, err)
	var withQueue models.OrderWithQueue
	decodeJSON(t, orderResp, &withQueue)
	require.NotNil(t, withQueue.Queue)
	assert.Equal(t, 1, withQueue.Queue.Position)

	// a second confirm must not double-charge
	resp = postJSON(t, srv.URL+"/api/payments/confirm", models.ConfirmRequest{
		PaymentKey: "pi_ok_123",
		OrderID:    prepared.OrderID,
		Amount:     prepared.Amount,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestConfirmPayment_WrongAmount(t *testing.T) {
	srv, _ := setupServer(t)
	prepared := prepareOrder(t, srv)

	resp := postJSON(t, srv.URL+"/api/payments/confirm", models.ConfirmRequest{
		PaymentKey: "pi_ok_123",
		OrderID:    prepared.OrderID,
		Amount:     prepared.Amount - 1000,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConfirmPayment_Declined(t *testing.T) {
	srv, _ := setupServer(t)
	prepared := prepareOrder(t, srv)

	resp := postJSON(t, srv.URL+"/api/payments/confirm", models.ConfirmRequest{
		PaymentKey: "pi_declined",
		OrderID:    prepared.OrderID,
		Amount:     prepared.Amount,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQueueStatus(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/api/queue/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.QueueStatus
	decodeJSON(t, resp, &got)
	assert.Equal(t, 0, got.Depth)
	assert.Equal(t, 30.0, got.AvgProcessMinutes)
	assert.True(t, got.Open)
}

func adminRequest(t *testing.T, method, url string, payload interface{}, key string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, url, &body)
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("X-Admin-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestAdmin_RequiresKey(t *testing.T) {
	srv, _ := setupServer(t)

	resp := adminRequest(t, http.MethodGet, srv.URL+"/api/admin/orders", nil, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = adminRequest(t, http.MethodGet, srv.URL+"/api/admin/orders", nil, "wrong-key")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdmin_ListOrders(t *testing.T) {
	srv, _ := setupServer(t)
	prepareOrder(t, srv)

	resp := adminRequest(t, http.MethodGet, srv.URL+"/api/admin/orders", nil, testAdminKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.AdminOrdersResponse
	decodeJSON(t, resp, &got)
	assert.Equal(t, 1, got.Stats.Total)
	assert.Equal(t, 1, got.Stats.Pending)
	require.Len(t, got.Orders, 1)
}

func TestAdmin_DeliveryFlow(t *testing.T) {
	srv, _ := setupServer(t)
	prepared := prepareOrder(t, srv)

	// pay so the order reaches processing
	resp := postJSON(t, srv.URL+"/api/payments/confirm", models.ConfirmRequest{
		PaymentKey: "pi_ok_123",
		OrderID:    prepared.OrderID,
		Amount:     prepared.Amount,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// attach finished files: processing → ready
	resp = adminRequest(t, http.MethodPost,
		fmt.Sprintf("%s/api/admin/orders/%s/delivery", srv.URL, prepared.OrderID),
		models.AttachDeliveryRequest{Files: []string{"santa-1.jpg", "santa-2.jpg"}},
		testAdminKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ready models.Order
	decodeJSON(t, resp, &ready)
	assert.Equal(t, models.StatusReady, ready.Status)

	// send the download link: ready → completed
	resp = adminRequest(t, http.MethodPost, srv.URL+"/api/admin/send-delivery",
		models.SendDeliveryRequest{OrderID: prepared.OrderID, Link: "https://cdn.example.com/bundle.zip"},
		testAdminKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var completed models.Order
	decodeJSON(t, resp, &completed)
	assert.Equal(t, models.StatusCompleted, completed.Status)
	assert.Equal(t, "https://cdn.example.com/bundle.zip", completed.DeliveryLink)
	assert.False(t, completed.CompletedAt.IsZero())
}

func TestAdmin_StatusOverrideBackwardRejected(t *testing.T) {
	srv, _ := setupServer(t)
	prepared := prepareOrder(t, srv)

	resp := postJSON(t, srv.URL+"/api/payments/confirm", models.ConfirmRequest{
		PaymentKey: "pi_ok_123",
		OrderID:    prepared.OrderID,
		Amount:     prepared.Amount,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = adminRequest(t, http.MethodPut,
		fmt.Sprintf("%s/api/admin/orders/%s/status", srv.URL, prepared.OrderID),
		models.StatusOverrideRequest{Status: models.StatusPending},
		testAdminKey)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
