package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"booking-engine/internal/model"
	"booking-engine/internal/promotion"
	"booking-engine/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// MockBookingService is a mock implementation of BookingService.
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) booking(args mock.Arguments) (*model.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingService) Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error) {
	return m.booking(m.Called(ctx, req))
}

func (m *MockBookingService) Get(ctx context.Context, reference string) (*model.Booking, error) {
	return m.booking(m.Called(ctx, reference))
}

func (m *MockBookingService) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Booking, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Booking), args.Error(1)
}

func (m *MockBookingService) Approve(ctx context.Context, reference string, req *model.StatusRequest) (*model.Booking, error) {
	return m.booking(m.Called(ctx, reference, req))
}

func (m *MockBookingService) Reject(ctx context.Context, reference string, req *model.StatusRequest) (*model.Booking, error) {
	return m.booking(m.Called(ctx, reference, req))
}

func (m *MockBookingService) Cancel(ctx context.Context, reference string, req *model.StatusRequest) (*model.Booking, error) {
	return m.booking(m.Called(ctx, reference, req))
}

func (m *MockBookingService) Complete(ctx context.Context, reference string, req *model.StatusRequest) (*model.Booking, error) {
	return m.booking(m.Called(ctx, reference, req))
}

func (m *MockBookingService) AddNote(ctx context.Context, reference string, req *model.NoteRequest) (*model.Booking, error) {
	return m.booking(m.Called(ctx, reference, req))
}

// MockPaymentService is a mock implementation of PaymentService.
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) RecordPayment(ctx context.Context, reference string, req *model.PaymentRequest) (*model.Booking, error) {
	args := m.Called(ctx, reference, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

// MockPromotionService is a mock implementation of PromotionService.
type MockPromotionService struct {
	mock.Mock
}

func (m *MockPromotionService) promotion(args mock.Arguments) (*model.Promotion, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Promotion), args.Error(1)
}

func (m *MockPromotionService) Create(ctx context.Context, req *model.PromotionRequest) (*model.Promotion, error) {
	return m.promotion(m.Called(ctx, req))
}

func (m *MockPromotionService) Update(ctx context.Context, id int64, req *model.PromotionRequest) (*model.Promotion, error) {
	return m.promotion(m.Called(ctx, id, req))
}

func (m *MockPromotionService) Get(ctx context.Context, id int64) (*model.Promotion, error) {
	return m.promotion(m.Called(ctx, id))
}

func (m *MockPromotionService) List(ctx context.Context, limit, offset int) ([]model.Promotion, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Promotion), args.Error(1)
}

func (m *MockPromotionService) Quote(ctx context.Context, req *model.QuoteRequest) (*model.Quote, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quote), args.Error(1)
}

func (m *MockPromotionService) Import(ctx context.Context, paths []string) (*promotion.ImportReport, error) {
	args := m.Called(ctx, paths)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*promotion.ImportReport), args.Error(1)
}

// MockRefundService is a mock implementation of RefundService.
type MockRefundService struct {
	mock.Mock
}

func (m *MockRefundService) refund(args mock.Arguments) (*model.RefundRequest, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefundRequest), args.Error(1)
}

func (m *MockRefundService) Submit(ctx context.Context, req *model.RefundSubmission) (*model.RefundRequest, error) {
	return m.refund(m.Called(ctx, req))
}

func (m *MockRefundService) Resolve(ctx context.Context, id uuid.UUID, req *model.RefundResolution) (*model.RefundRequest, error) {
	return m.refund(m.Called(ctx, id, req))
}

func (m *MockRefundService) Get(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error) {
	return m.refund(m.Called(ctx, id))
}

// MockSweepRunner is a mock implementation of SweepRunner.
type MockSweepRunner struct {
	mock.Mock
}

func (m *MockSweepRunner) RunOnce(ctx context.Context) (*service.SweepReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SweepReport), args.Error(1)
}

// serve routes one request through a chi router holding a single route so
// URL parameters resolve as they do in production.
func serve(t *testing.T, method, pattern, target string, body interface{}, fn http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	r := chi.NewRouter()
	r.Method(method, pattern, fn)

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func testBooking(reference string, status model.BookingStatus) *model.Booking {
	return &model.Booking{
		ID:            7,
		Reference:     reference,
		ItemType:      model.ItemTypeCar,
		ItemID:        "car-1",
		ItemName:      "Compact",
		Customer:      model.Customer{OwnerID: "owner-1", Name: "Ana Cruz", Email: "ana@example.com"},
		StartDate:     testNow.Add(72 * time.Hour),
		EndDate:       testNow.Add(96 * time.Hour),
		NumberOfDays:  1,
		TotalPrice:    decimal.NewFromInt(1000),
		AmountPaid:    decimal.Zero,
		PaymentOption: model.PaymentFull,
		Status:        status,
		Payments:      []model.Payment{},
		Notes:         []model.Note{},
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
}
