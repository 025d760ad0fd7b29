package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"booking-engine/internal/booking"
	"booking-engine/internal/model"
	"booking-engine/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var noCursor *repository.ExpiryCursor

func newReconciliationServiceUnderTest() (ReconciliationService, *MockBookingRepository, *MockDispatcher) {
	bookings := new(MockBookingRepository)
	dispatcher := new(MockDispatcher)
	svc := NewReconciliationService(bookings, booking.NewMachine(booking.DefaultWindows()), dispatcher, fixedClock, zerolog.Nop())
	return svc, bookings, dispatcher
}

func expiredCar(reference string) model.Booking {
	b := testBooking(reference, model.ItemTypeCar, model.PaymentFull, model.StatusPending)
	b.Deadline = model.AwaitingPayment(testNow.Add(-time.Minute))
	return *b
}

func TestReconciliationService_SweepTwiceCancelsOnce(t *testing.T) {
	svc, bookings, dispatcher := newReconciliationServiceUnderTest()
	ctx := context.Background()

	// The second tick reads the same row before the first one's commit is
	// visible, so its conditional update must lose.
	bookings.On("ListExpired", ctx, testNow, noCursor, DefaultSweepBatch).Return([]model.Booking{expiredCar("CAR-EXP-0001")}, nil).Once()
	bookings.On("ListExpired", ctx, testNow, noCursor, DefaultSweepBatch).Return([]model.Booking{expiredCar("CAR-EXP-0001")}, nil).Once()
	bookings.On("ApplyChange", ctx, int64(42), mock.Anything).Return(nil).Once()
	bookings.On("ApplyChange", ctx, int64(42), mock.Anything).Return(repository.ErrStalePrecondition).Once()
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return()

	first, err := svc.Sweep(ctx)
	require.NoError(t, err)
	second, err := svc.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"CAR-EXP-0001"}, first.Cancelled)
	assert.Empty(t, second.Cancelled)
	assert.Equal(t, 1, second.Skipped)

	dispatcher.AssertNumberOfCalls(t, "Dispatch", 1)
	effects := dispatcher.Calls[0].Arguments.Get(1).([]model.Effect)
	assert.Equal(t, 1, effectsOfKind(effects, model.EffectNotification))
	assert.Equal(t, "owner-1", effects[1].Recipient)
}

func TestReconciliationService_ChangeCarriesPreconditions(t *testing.T) {
	svc, bookings, dispatcher := newReconciliationServiceUnderTest()
	ctx := context.Background()

	b := testBooking("TRN-EXP-0002", model.ItemTypeTransport, model.PaymentFull, model.StatusPending)
	b.Deadline = model.AwaitingAdminConfirmation(testNow.Add(-time.Hour))

	bookings.On("ListExpired", ctx, testNow, noCursor, DefaultSweepBatch).Return([]model.Booking{*b}, nil)
	bookings.On("ApplyChange", ctx, b.ID, mock.MatchedBy(func(c *booking.Change) bool {
		return c.From == model.StatusPending &&
			c.To == model.StatusCancelled &&
			c.ExpectDeadline == model.DeadlineAwaitingAdminConfirmation &&
			!c.Deadline.IsSet() &&
			c.Note != nil && c.Note.Author == model.SystemAuthor
	})).Return(nil)
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return()

	report, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"TRN-EXP-0002"}, report.Cancelled)

	effects := dispatcher.Calls[0].Arguments.Get(1).([]model.Effect)
	assert.Contains(t, effects[0].Note, "admin confirmation window")
}

func TestReconciliationService_ContinuesPastFailures(t *testing.T) {
	svc, bookings, dispatcher := newReconciliationServiceUnderTest()
	ctx := context.Background()

	broken := expiredCar("CAR-EXP-0003")
	broken.ID = 1
	healthy := expiredCar("CAR-EXP-0004")
	healthy.ID = 2
	notYet := expiredCar("CAR-EXP-0005")
	notYet.ID = 3
	notYet.Deadline = model.AwaitingPayment(testNow.Add(time.Minute))

	bookings.On("ListExpired", ctx, testNow, noCursor, DefaultSweepBatch).Return([]model.Booking{broken, healthy, notYet}, nil)
	bookings.On("ApplyChange", ctx, int64(1), mock.Anything).Return(errors.New("deadlock detected"))
	bookings.On("ApplyChange", ctx, int64(2), mock.Anything).Return(nil)
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return()

	report, err := svc.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, []string{"CAR-EXP-0004"}, report.Cancelled)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Skipped)
	bookings.AssertNotCalled(t, "ApplyChange", ctx, int64(3), mock.Anything)
	dispatcher.AssertNumberOfCalls(t, "Dispatch", 1)
}

func TestReconciliationService_ListError(t *testing.T) {
	svc, bookings, _ := newReconciliationServiceUnderTest()
	ctx := context.Background()

	bookings.On("ListExpired", ctx, testNow, noCursor, DefaultSweepBatch).Return(nil, errors.New("connection refused"))

	_, err := svc.Sweep(ctx)
	assert.Error(t, err)
}

func TestReconciliationService_PagesPastFailingRows(t *testing.T) {
	svc, bookings, dispatcher := newReconciliationServiceUnderTest()
	svc.(*reconciliationService).batch = 2
	ctx := context.Background()

	stuck1 := expiredCar("CAR-EXP-0006")
	stuck1.ID = 6
	stuck1.Deadline = model.AwaitingPayment(testNow.Add(-3 * time.Minute))
	stuck2 := expiredCar("CAR-EXP-0007")
	stuck2.ID = 7
	stuck2.Deadline = model.AwaitingPayment(testNow.Add(-2 * time.Minute))
	newer := expiredCar("CAR-EXP-0008")
	newer.ID = 8

	// The stuck rows fill the first page on every pass; the cursor still
	// reaches the newer booking.
	bookings.On("ListExpired", ctx, testNow, noCursor, 2).Return([]model.Booking{stuck1, stuck2}, nil).Once()
	bookings.On("ListExpired", ctx, testNow, repository.CursorAfter(&stuck2), 2).Return([]model.Booking{newer}, nil).Once()
	bookings.On("ApplyChange", ctx, int64(6), mock.Anything).Return(errors.New("row locked"))
	bookings.On("ApplyChange", ctx, int64(7), mock.Anything).Return(errors.New("row locked"))
	bookings.On("ApplyChange", ctx, int64(8), mock.Anything).Return(nil)
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return()

	report, err := svc.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, []string{"CAR-EXP-0008"}, report.Cancelled)
	bookings.AssertNumberOfCalls(t, "ListExpired", 2)
}

func TestReconciliationService_FullLastPageReadsOnce(t *testing.T) {
	svc, bookings, dispatcher := newReconciliationServiceUnderTest()
	svc.(*reconciliationService).batch = 1
	ctx := context.Background()

	only := expiredCar("CAR-EXP-0009")
	bookings.On("ListExpired", ctx, testNow, noCursor, 1).Return([]model.Booking{only}, nil).Once()
	bookings.On("ListExpired", ctx, testNow, repository.CursorAfter(&only), 1).Return([]model.Booking{}, nil).Once()
	bookings.On("ApplyChange", ctx, only.ID, mock.Anything).Return(nil)
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return()

	report, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	bookings.AssertExpectations(t)
}
