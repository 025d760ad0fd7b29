package service

import (
	"context"
	"time"

	"booking-engine/internal/booking"
	"booking-engine/internal/model"
	"booking-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// MockBookingRepository is a mock implementation of BookingRepository.
type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, b *model.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByReference(ctx context.Context, reference string) (*model.Booking, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]model.Booking, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListExpired(ctx context.Context, now time.Time, after *repository.ExpiryCursor, limit int) ([]model.Booking, error) {
	args := m.Called(ctx, now, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Booking), args.Error(1)
}

func (m *MockBookingRepository) ApplyChange(ctx context.Context, bookingID int64, change *booking.Change) error {
	args := m.Called(ctx, bookingID, change)
	return args.Error(0)
}

func (m *MockBookingRepository) ApplyPayment(ctx context.Context, bookingID int64, status model.BookingStatus, paidBefore decimal.Decimal, payment *model.Payment, change *booking.Change) error {
	args := m.Called(ctx, bookingID, status, paidBefore, payment, change)
	return args.Error(0)
}

func (m *MockBookingRepository) AppendNote(ctx context.Context, bookingID int64, note *model.Note) error {
	args := m.Called(ctx, bookingID, note)
	return args.Error(0)
}

// MockItemRepository is a mock implementation of ItemRepository.
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) GetByID(ctx context.Context, id string) (*model.CatalogItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CatalogItem), args.Error(1)
}

func (m *MockItemRepository) GetAvailability(ctx context.Context, id string, itemType model.ItemType) (bool, error) {
	args := m.Called(ctx, id, itemType)
	return args.Bool(0), args.Error(1)
}

func (m *MockItemRepository) Upsert(ctx context.Context, item *model.CatalogItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

// MockPromotionRepository is a mock implementation of PromotionRepository.
type MockPromotionRepository struct {
	mock.Mock
}

func (m *MockPromotionRepository) Create(ctx context.Context, p *model.Promotion) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPromotionRepository) Update(ctx context.Context, p *model.Promotion) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPromotionRepository) Upsert(ctx context.Context, p *model.Promotion) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPromotionRepository) UpsertAll(ctx context.Context, promotions []model.Promotion) error {
	args := m.Called(ctx, promotions)
	return args.Error(0)
}

func (m *MockPromotionRepository) GetByID(ctx context.Context, id int64) (*model.Promotion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Promotion), args.Error(1)
}

func (m *MockPromotionRepository) List(ctx context.Context, limit, offset int) ([]model.Promotion, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Promotion), args.Error(1)
}

func (m *MockPromotionRepository) ListActive(ctx context.Context) ([]model.Promotion, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Promotion), args.Error(1)
}

// MockRefundRequestRepository is a mock implementation of RefundRequestRepository.
type MockRefundRequestRepository struct {
	mock.Mock
}

func (m *MockRefundRequestRepository) Create(ctx context.Context, r *model.RefundRequest) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRefundRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.RefundRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefundRequest), args.Error(1)
}

func (m *MockRefundRequestRepository) GetByBookingReference(ctx context.Context, reference string) (*model.RefundRequest, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefundRequest), args.Error(1)
}

func (m *MockRefundRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.RefundStatus, note *model.Note, at time.Time) error {
	args := m.Called(ctx, id, from, to, note, at)
	return args.Error(0)
}

// MockDispatcher records dispatched effects.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, effects []model.Effect) {
	m.Called(ctx, effects)
}

// MockSource is a mock implementation of promotion.Source.
type MockSource struct {
	mock.Mock
}

func (m *MockSource) ListActive(ctx context.Context) ([]model.Promotion, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Promotion), args.Error(1)
}

func (m *MockSource) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func testBooking(reference string, itemType model.ItemType, option model.PaymentOption, status model.BookingStatus) *model.Booking {
	return &model.Booking{
		ID:            42,
		Reference:     reference,
		ItemType:      itemType,
		ItemID:        "item-1",
		ItemName:      "Test item",
		Customer:      model.Customer{OwnerID: "owner-1", Name: "Ana Cruz", Email: "ana@example.com"},
		StartDate:     testNow.Add(10 * 24 * time.Hour),
		EndDate:       testNow.Add(12 * 24 * time.Hour),
		NumberOfDays:  2,
		TotalPrice:    decimal.NewFromInt(1000),
		AmountPaid:    decimal.Zero,
		PaymentOption: option,
		Status:        status,
		Payments:      []model.Payment{},
		Notes:         []model.Note{},
		CreatedAt:     testNow.Add(-time.Hour),
		UpdatedAt:     testNow.Add(-time.Hour),
	}
}

// effectsOfKind counts effects with the given kind.
func effectsOfKind(effects []model.Effect, kind model.EffectKind) int {
	n := 0
	for _, e := range effects {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
