package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"booking-engine/internal/booking"
	"booking-engine/internal/model"
	"booking-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRefundServiceUnderTest() (RefundService, *MockRefundRequestRepository, *MockBookingRepository, *MockDispatcher) {
	refunds := new(MockRefundRequestRepository)
	bookings := new(MockBookingRepository)
	dispatcher := new(MockDispatcher)
	svc := NewRefundService(refunds, bookings, booking.NewMachine(booking.DefaultWindows()), dispatcher, fixedClock, zerolog.Nop())
	return svc, refunds, bookings, dispatcher
}

func submission(reference string) *model.RefundSubmission {
	return &model.RefundSubmission{
		BookingReference: reference,
		Name:             "Ana Cruz",
		Email:            "ana@example.com",
		Reason:           "Flight cancelled",
	}
}

func TestRefundService_Submit_FreezesPolicy(t *testing.T) {
	tests := []struct {
		name       string
		startIn    time.Duration
		wantPolicy model.RefundTier
		wantAmount int64
	}{
		{name: "ten days out", startIn: 10 * 24 * time.Hour, wantPolicy: model.RefundFull, wantAmount: 1000},
		{name: "three days out", startIn: 3 * 24 * time.Hour, wantPolicy: model.RefundHalf, wantAmount: 500},
		{name: "already started", startIn: -24 * time.Hour, wantPolicy: model.RefundNone, wantAmount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, refunds, bookings, dispatcher := newRefundServiceUnderTest()
			ctx := context.Background()

			b := testBooking("CAR-REF-0001", model.ItemTypeCar, model.PaymentFull, model.StatusFullyPaid)
			b.StartDate = testNow.Add(tt.startIn)

			bookings.On("GetByReference", ctx, b.Reference).Return(b, nil)
			refunds.On("GetByBookingReference", ctx, b.Reference).Return(nil, nil)
			refunds.On("Create", ctx, mock.AnythingOfType("*model.RefundRequest")).Return(nil)
			dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return()

			r, err := svc.Submit(ctx, submission(b.Reference))
			require.NoError(t, err)

			assert.Equal(t, model.RefundPending, r.Status)
			assert.Equal(t, tt.wantPolicy, r.RefundPolicy)
			assert.True(t, decimal.NewFromInt(tt.wantAmount).Equal(r.CalculatedRefundAmount))

			effects := dispatcher.Calls[0].Arguments.Get(1).([]model.Effect)
			require.Len(t, effects, 1)
			assert.Equal(t, model.StaffRecipient, effects[0].Recipient)
		})
	}
}

func TestRefundService_Submit_Duplicate(t *testing.T) {
	svc, refunds, bookings, dispatcher := newRefundServiceUnderTest()
	ctx := context.Background()

	b := testBooking("CAR-REF-0002", model.ItemTypeCar, model.PaymentFull, model.StatusConfirmed)
	bookings.On("GetByReference", ctx, b.Reference).Return(b, nil)
	refunds.On("GetByBookingReference", ctx, b.Reference).Return(nil, nil).Once()
	refunds.On("Create", ctx, mock.Anything).Return(nil).Once()
	refunds.On("GetByBookingReference", ctx, b.Reference).Return(&model.RefundRequest{BookingReference: b.Reference}, nil).Once()
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return()

	_, err := svc.Submit(ctx, submission(b.Reference))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, submission(b.Reference))
	assert.ErrorIs(t, err, model.ErrDuplicateRequest)
	refunds.AssertNumberOfCalls(t, "Create", 1)
}

func TestRefundService_Submit_DuplicateRace(t *testing.T) {
	svc, refunds, bookings, _ := newRefundServiceUnderTest()
	ctx := context.Background()

	b := testBooking("CAR-REF-0003", model.ItemTypeCar, model.PaymentFull, model.StatusConfirmed)
	bookings.On("GetByReference", ctx, b.Reference).Return(b, nil)
	refunds.On("GetByBookingReference", ctx, b.Reference).Return(nil, nil)
	refunds.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicate)

	_, err := svc.Submit(ctx, submission(b.Reference))
	assert.ErrorIs(t, err, model.ErrDuplicateRequest)
}

func TestRefundService_Submit_Errors(t *testing.T) {
	svc, refunds, bookings, _ := newRefundServiceUnderTest()
	ctx := context.Background()

	bookings.On("GetByReference", ctx, "CAR-NONE-0000").Return(nil, nil)
	_, err := svc.Submit(ctx, submission("CAR-NONE-0000"))
	assert.ErrorIs(t, err, model.ErrNotFound)

	done := testBooking("CAR-DONE-0001", model.ItemTypeCar, model.PaymentFull, model.StatusCompleted)
	bookings.On("GetByReference", ctx, done.Reference).Return(done, nil)
	refunds.On("GetByBookingReference", ctx, done.Reference).Return(nil, nil)
	_, err = svc.Submit(ctx, submission(done.Reference))
	assert.ErrorIs(t, err, model.ErrNotRefundable)
}

func TestRefundService_Resolve_ApproveCancelsBooking(t *testing.T) {
	svc, refunds, bookings, dispatcher := newRefundServiceUnderTest()
	ctx := context.Background()

	b := testBooking("CAR-REF-0004", model.ItemTypeCar, model.PaymentFull, model.StatusFullyPaid)
	r := &model.RefundRequest{
		ID:                     uuid.New(),
		BookingReference:       b.Reference,
		SubmitterEmail:         "ana@example.com",
		RefundPolicy:           model.RefundFull,
		CalculatedRefundAmount: decimal.NewFromInt(1000),
		Status:                 model.RefundPending,
		Notes:                  []model.Note{},
	}

	refunds.On("GetByID", ctx, r.ID).Return(r, nil)
	refunds.On("UpdateStatus", ctx, r.ID, model.RefundPending, model.RefundApproved, mock.AnythingOfType("*model.Note"), testNow).Return(nil)
	bookings.On("GetByReference", ctx, b.Reference).Return(b, nil)
	bookings.On("ApplyChange", ctx, b.ID, mock.MatchedBy(func(c *booking.Change) bool {
		return c.To == model.StatusCancelled && c.Note != nil && c.Note.Author == "admin@example.com"
	})).Return(nil)
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return()

	got, err := svc.Resolve(ctx, r.ID, &model.RefundResolution{
		Status: model.RefundApproved, Admin: "admin@example.com", Note: "Approved per policy",
	})
	require.NoError(t, err)

	assert.Equal(t, model.RefundApproved, got.Status)
	require.Len(t, got.Notes, 1)
	bookings.AssertCalled(t, "ApplyChange", ctx, b.ID, mock.Anything)

	dispatcher.AssertNumberOfCalls(t, "Dispatch", 1)
	effects := dispatcher.Calls[0].Arguments.Get(1).([]model.Effect)
	require.Len(t, effects, 1)
	assert.Equal(t, model.TemplateRefundApproved, effects[0].Template)
}

func TestRefundService_Resolve_ConfirmLeavesBookingAlone(t *testing.T) {
	svc, refunds, bookings, dispatcher := newRefundServiceUnderTest()
	ctx := context.Background()

	r := &model.RefundRequest{ID: uuid.New(), BookingReference: "CAR-REF-0005", Status: model.RefundApproved}
	refunds.On("GetByID", ctx, r.ID).Return(r, nil)
	refunds.On("UpdateStatus", ctx, r.ID, model.RefundApproved, model.RefundConfirmed, mock.Anything, testNow).Return(nil)
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return()

	got, err := svc.Resolve(ctx, r.ID, &model.RefundResolution{
		Status: model.RefundConfirmed, Admin: "admin@example.com", Note: "Sent via bank transfer", Attachment: "receipt.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RefundConfirmed, got.Status)
	bookings.AssertNotCalled(t, "GetByReference", mock.Anything, mock.Anything)
}

func TestRefundService_Resolve_InvalidMoves(t *testing.T) {
	tests := []struct {
		name string
		from model.RefundStatus
		to   model.RefundStatus
	}{
		{name: "declined is final", from: model.RefundDeclined, to: model.RefundConfirmed},
		{name: "approved cannot be declined", from: model.RefundApproved, to: model.RefundDeclined},
		{name: "confirmed is final", from: model.RefundConfirmed, to: model.RefundApproved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, refunds, _, _ := newRefundServiceUnderTest()
			ctx := context.Background()

			r := &model.RefundRequest{ID: uuid.New(), BookingReference: "CAR-REF-0006", Status: tt.from}
			refunds.On("GetByID", ctx, r.ID).Return(r, nil)

			_, err := svc.Resolve(ctx, r.ID, &model.RefundResolution{Status: tt.to, Admin: "admin@example.com", Note: "x"})
			assert.ErrorIs(t, err, model.ErrInvalidTransition)
			refunds.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func pendingRefund(reference string) *model.RefundRequest {
	return &model.RefundRequest{
		ID:                     uuid.New(),
		BookingReference:       reference,
		SubmitterEmail:         "ana@example.com",
		RefundPolicy:           model.RefundFull,
		CalculatedRefundAmount: decimal.NewFromInt(1000),
		Status:                 model.RefundPending,
		Notes:                  []model.Note{},
	}
}

func approval() *model.RefundResolution {
	return &model.RefundResolution{Status: model.RefundApproved, Admin: "admin@example.com", Note: "Approved per policy"}
}

func TestRefundService_Resolve_RetriesCancelAfterConcurrentApproval(t *testing.T) {
	svc, refunds, bookings, dispatcher := newRefundServiceUnderTest()
	ctx := context.Background()

	r := pendingRefund("CAR-REF-0007")
	before := testBooking(r.BookingReference, model.ItemTypeCar, model.PaymentFull, model.StatusPending)
	before.Deadline = model.AwaitingPayment(testNow.Add(10 * time.Minute))
	// Another admin approved the booking between our read and our update.
	after := testBooking(r.BookingReference, model.ItemTypeCar, model.PaymentFull, model.StatusConfirmed)

	refunds.On("GetByID", ctx, r.ID).Return(r, nil)
	bookings.On("GetByReference", ctx, r.BookingReference).Return(before, nil).Once()
	bookings.On("GetByReference", ctx, r.BookingReference).Return(after, nil).Once()
	bookings.On("ApplyChange", ctx, before.ID, mock.MatchedBy(func(c *booking.Change) bool {
		return c.From == model.StatusPending
	})).Return(repository.ErrStalePrecondition).Once()
	bookings.On("ApplyChange", ctx, after.ID, mock.MatchedBy(func(c *booking.Change) bool {
		return c.From == model.StatusConfirmed && c.To == model.StatusCancelled
	})).Return(nil).Once()
	refunds.On("UpdateStatus", ctx, r.ID, model.RefundPending, model.RefundApproved, mock.Anything, testNow).Return(nil)
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return()

	got, err := svc.Resolve(ctx, r.ID, approval())
	require.NoError(t, err)

	assert.Equal(t, model.RefundApproved, got.Status)
	bookings.AssertNumberOfCalls(t, "GetByReference", 2)
	bookings.AssertNumberOfCalls(t, "ApplyChange", 2)
	bookings.AssertExpectations(t)
}

func TestRefundService_Resolve_ConcurrentCancelIsEnough(t *testing.T) {
	svc, refunds, bookings, dispatcher := newRefundServiceUnderTest()
	ctx := context.Background()

	r := pendingRefund("CAR-REF-0008")
	before := testBooking(r.BookingReference, model.ItemTypeCar, model.PaymentFull, model.StatusConfirmed)
	swept := testBooking(r.BookingReference, model.ItemTypeCar, model.PaymentFull, model.StatusCancelled)

	refunds.On("GetByID", ctx, r.ID).Return(r, nil)
	bookings.On("GetByReference", ctx, r.BookingReference).Return(before, nil).Once()
	bookings.On("GetByReference", ctx, r.BookingReference).Return(swept, nil).Once()
	bookings.On("ApplyChange", ctx, before.ID, mock.Anything).Return(repository.ErrStalePrecondition).Once()
	refunds.On("UpdateStatus", ctx, r.ID, model.RefundPending, model.RefundApproved, mock.Anything, testNow).Return(nil)
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return()

	got, err := svc.Resolve(ctx, r.ID, approval())
	require.NoError(t, err)
	assert.Equal(t, model.RefundApproved, got.Status)
	bookings.AssertNumberOfCalls(t, "ApplyChange", 1)
}

func TestRefundService_Resolve_CancelFailureLeavesRefundPending(t *testing.T) {
	tests := []struct {
		name    string
		arrange func(b *MockBookingRepository, reference string)
		wantErr error
	}{
		{
			name: "booking load fails",
			arrange: func(b *MockBookingRepository, reference string) {
				b.On("GetByReference", mock.Anything, reference).Return(nil, errors.New("connection reset"))
			},
		},
		{
			name: "booking keeps changing",
			arrange: func(b *MockBookingRepository, reference string) {
				b.On("GetByReference", mock.Anything, reference).
					Return(testBooking(reference, model.ItemTypeCar, model.PaymentFull, model.StatusConfirmed), nil)
				b.On("ApplyChange", mock.Anything, mock.Anything, mock.Anything).Return(repository.ErrStalePrecondition)
			},
			wantErr: model.ErrInvalidTransition,
		},
		{
			name: "cancel write fails",
			arrange: func(b *MockBookingRepository, reference string) {
				b.On("GetByReference", mock.Anything, reference).
					Return(testBooking(reference, model.ItemTypeCar, model.PaymentFull, model.StatusConfirmed), nil)
				b.On("ApplyChange", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("deadlock detected"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, refunds, bookings, dispatcher := newRefundServiceUnderTest()
			ctx := context.Background()

			r := pendingRefund("CAR-REF-0009")
			refunds.On("GetByID", ctx, r.ID).Return(r, nil)
			tt.arrange(bookings, r.BookingReference)

			_, err := svc.Resolve(ctx, r.ID, approval())
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			refunds.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
		})
	}

	t.Run("bounded retries", func(t *testing.T) {
		svc, refunds, bookings, _ := newRefundServiceUnderTest()
		r := pendingRefund("CAR-REF-0010")
		refunds.On("GetByID", mock.Anything, r.ID).Return(r, nil)
		bookings.On("GetByReference", mock.Anything, r.BookingReference).
			Return(testBooking(r.BookingReference, model.ItemTypeCar, model.PaymentFull, model.StatusConfirmed), nil)
		bookings.On("ApplyChange", mock.Anything, mock.Anything, mock.Anything).Return(repository.ErrStalePrecondition)

		_, err := svc.Resolve(context.Background(), r.ID, approval())
		require.Error(t, err)
		bookings.AssertNumberOfCalls(t, "ApplyChange", refundCancelAttempts)
	})
}
