package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/parcelbooking/config"
	"github.com/Domenick1991/parcelbooking/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) Submit(ctx context.Context, draft domain.BookingDraft) (domain.SubmitResponse, error) {
	args := m.Called(ctx, draft)
	return args.Get(0).(domain.SubmitResponse), args.Error(1)
}

func (m *MockBookingUseCase) Cancel(ctx context.Context, trackingCode, userID string) (bool, error) {
	args := m.Called(ctx, trackingCode, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingUseCase) Lookup(ctx context.Context, trackingCode, userID string) (*domain.BookingResult, error) {
	args := m.Called(ctx, trackingCode, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingResult), args.Error(1)
}

func (m *MockBookingUseCase) CloseCancellationWindows(ctx context.Context) ([]domain.Shipment, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Shipment), args.Error(1)
}

func (m *MockBookingUseCase) AttachLabel(ctx context.Context, trackingCode, labelURL string) error {
	args := m.Called(ctx, trackingCode, labelURL)
	return args.Error(0)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(h Handlers) *gin.Engine {
	return NewRouter(config.HTTPConfig{}, testSecret, nil, h)
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := GenerateToken(testSecret, userID, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func do(t *testing.T, r http.Handler, method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
