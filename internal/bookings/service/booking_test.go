package service

import (
	"context"
	"io"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingrepo "lendly/internal/bookings/repository"
	"lendly/internal/bookings/validator"
	itemrepo "lendly/internal/items/repository"
	userrepo "lendly/internal/users/repository"
	dbmongo "lendly/pkg/db/mongo"
	apperrors "lendly/pkg/errors"
	"lendly/pkg/logger"
	"lendly/pkg/model"
)

const (
	testItemID     = "65a000000000000000000001"
	testBookerID   = "65a000000000000000000002"
	testOwnerID    = "65a000000000000000000003"
	testBookingID  = "65a000000000000000000004"
	testStrangerID = "65a000000000000000000005"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type mockBookingRepo struct {
	createFn       func(ctx context.Context, booking *model.Booking) (*model.Booking, error)
	findByIDFn     func(ctx context.Context, id string) (*model.Booking, error)
	updateStatusFn func(ctx context.Context, id string, status model.BookingStatus) (*model.Booking, error)
	overlapFn      func(ctx context.Context, itemID, excludeID string, start, end time.Time) (bool, error)
	byBookerFn     func(ctx context.Context, bookerID string, state model.BookingState, now time.Time, limit int, offset int64) ([]model.Booking, error)
	byOwnerFn      func(ctx context.Context, ownerID string, state model.BookingState, now time.Time, limit int, offset int64) ([]model.Booking, error)
}

func (m *mockBookingRepo) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	return m.createFn(ctx, booking)
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockBookingRepo) UpdateStatus(ctx context.Context, id string, status model.BookingStatus) (*model.Booking, error) {
	return m.updateStatusFn(ctx, id, status)
}

func (m *mockBookingRepo) ExistsOverlapping(ctx context.Context, itemID, excludeID string, start, end time.Time) (bool, error) {
	if m.overlapFn == nil {
		return false, nil
	}
	return m.overlapFn(ctx, itemID, excludeID, start, end)
}

func (m *mockBookingRepo) FindByBooker(ctx context.Context, bookerID string, state model.BookingState, now time.Time, limit int, offset int64) ([]model.Booking, error) {
	return m.byBookerFn(ctx, bookerID, state, now, limit, offset)
}

func (m *mockBookingRepo) FindByOwner(ctx context.Context, ownerID string, state model.BookingState, now time.Time, limit int, offset int64) ([]model.Booking, error) {
	return m.byOwnerFn(ctx, ownerID, state, now, limit, offset)
}

type mockLocker struct {
	acquireFn func(ctx context.Context, itemID string) error
	released  []string
}

func (m *mockLocker) Acquire(ctx context.Context, itemID string) error {
	if m.acquireFn == nil {
		return nil
	}
	return m.acquireFn(ctx, itemID)
}

func (m *mockLocker) Release(_ context.Context, itemID string) error {
	m.released = append(m.released, itemID)
	return nil
}

type mockItemReader struct {
	findByIDFn  func(ctx context.Context, id string) (*model.Item, error)
	findByIDsFn func(ctx context.Context, ids []string) ([]model.Item, error)
}

func (m *mockItemReader) FindByID(ctx context.Context, id string) (*model.Item, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockItemReader) FindByIDs(ctx context.Context, ids []string) ([]model.Item, error) {
	if m.findByIDsFn == nil {
		return nil, nil
	}
	return m.findByIDsFn(ctx, ids)
}

type mockUserReader struct {
	findByIDFn  func(ctx context.Context, id string) (*model.User, error)
	findByIDsFn func(ctx context.Context, ids []string) ([]model.User, error)
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockUserReader) FindByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if m.findByIDsFn == nil {
		return nil, nil
	}
	return m.findByIDsFn(ctx, ids)
}

// mockTxManager runs the transaction body directly, without a session.
type mockTxManager struct{}

func (mockTxManager) ExecuteTransaction(_ context.Context, fn dbmongo.TransactionFunc) error {
	var sessCtx mongo.SessionContext
	return fn(sessCtx)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT, Output: io.Discard})
}

func availableItem() *model.Item {
	available := true
	return &model.Item{
		ID:        testItemID,
		OwnerID:   testOwnerID,
		Name:      "cordless drill",
		Available: &available,
	}
}

func newTestService(repo *mockBookingRepo, locks *mockLocker, items *mockItemReader, users *mockUserReader) *BookingService {
	return &BookingService{
		repo:      repo,
		locks:     locks,
		items:     items,
		users:     users,
		txManager: mockTxManager{},
		validator: validator.NewBookingValidator(),
		log:       testLogger(),
		nowFn:     func() time.Time { return testNow },
	}
}

func validRequest() *model.Booking {
	return &model.Booking{
		ItemID:    testItemID,
		StartTime: testNow.Add(24 * time.Hour),
		EndTime:   testNow.Add(48 * time.Hour),
	}
}

func waitingBooking() *model.Booking {
	return &model.Booking{
		ID:        testBookingID,
		ItemID:    testItemID,
		BookerID:  testBookerID,
		OwnerID:   testOwnerID,
		StartTime: testNow.Add(24 * time.Hour),
		EndTime:   testNow.Add(48 * time.Hour),
		Status:    model.StatusWaiting,
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, appErr.Code, err)
	}
}

func TestCreateRejectsEndNotAfterStart(t *testing.T) {
	svc := newTestService(&mockBookingRepo{}, &mockLocker{}, &mockItemReader{}, &mockUserReader{})

	booking := validRequest()
	booking.EndTime = booking.StartTime

	_, err := svc.Create(context.Background(), testBookerID, booking)
	assertCode(t, err, apperrors.CodeIncorrectTime)
}

func TestCreateRejectsStartInPast(t *testing.T) {
	svc := newTestService(&mockBookingRepo{}, &mockLocker{}, &mockItemReader{}, &mockUserReader{})

	booking := validRequest()
	booking.StartTime = testNow.Add(-time.Hour)
	booking.EndTime = testNow.Add(time.Hour)

	_, err := svc.Create(context.Background(), testBookerID, booking)
	assertCode(t, err, apperrors.CodeIncorrectTime)
}

func TestCreateReportsIntervalBeforeShape(t *testing.T) {
	svc := newTestService(&mockBookingRepo{}, &mockLocker{}, &mockItemReader{}, &mockUserReader{})

	// Missing item id and an inverted interval at once: the temporal rule
	// must win.
	booking := &model.Booking{
		StartTime: testNow.Add(48 * time.Hour),
		EndTime:   testNow.Add(24 * time.Hour),
	}

	_, err := svc.Create(context.Background(), testBookerID, booking)
	assertCode(t, err, apperrors.CodeIncorrectTime)
}

func TestCreateRejectsUnknownItem(t *testing.T) {
	items := &mockItemReader{
		findByIDFn: func(context.Context, string) (*model.Item, error) {
			return nil, itemrepo.ErrNotFound
		},
	}
	svc := newTestService(&mockBookingRepo{}, &mockLocker{}, items, &mockUserReader{})

	_, err := svc.Create(context.Background(), testBookerID, validRequest())
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestCreateRejectsUnknownBooker(t *testing.T) {
	items := &mockItemReader{
		findByIDFn: func(context.Context, string) (*model.Item, error) {
			return availableItem(), nil
		},
	}
	users := &mockUserReader{
		findByIDFn: func(context.Context, string) (*model.User, error) {
			return nil, userrepo.ErrNotFound
		},
	}
	svc := newTestService(&mockBookingRepo{}, &mockLocker{}, items, users)

	_, err := svc.Create(context.Background(), testBookerID, validRequest())
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestCreateRejectsOwnItem(t *testing.T) {
	items := &mockItemReader{
		findByIDFn: func(context.Context, string) (*model.Item, error) {
			return availableItem(), nil
		},
	}
	users := &mockUserReader{
		findByIDFn: func(context.Context, string) (*model.User, error) {
			return &model.User{ID: testOwnerID, Name: "owner"}, nil
		},
	}
	svc := newTestService(&mockBookingRepo{}, &mockLocker{}, items, users)

	_, err := svc.Create(context.Background(), testOwnerID, validRequest())
	assertCode(t, err, apperrors.CodeAccessDenied)
}

func TestCreateRejectsUnavailableItem(t *testing.T) {
	unavailable := false
	items := &mockItemReader{
		findByIDFn: func(context.Context, string) (*model.Item, error) {
			item := availableItem()
			item.Available = &unavailable
			return item, nil
		},
	}
	users := &mockUserReader{
		findByIDFn: func(context.Context, string) (*model.User, error) {
			return &model.User{ID: testBookerID, Name: "booker"}, nil
		},
	}
	svc := newTestService(&mockBookingRepo{}, &mockLocker{}, items, users)

	_, err := svc.Create(context.Background(), testBookerID, validRequest())
	assertCode(t, err, apperrors.CodeNotAvailable)
}

func TestCreateAdmitsWaitingBooking(t *testing.T) {
	var stored *model.Booking
	repo := &mockBookingRepo{
		createFn: func(_ context.Context, booking *model.Booking) (*model.Booking, error) {
			stored = booking
			created := *booking
			created.ID = testBookingID
			created.Status = model.StatusWaiting
			return &created, nil
		},
	}
	items := &mockItemReader{
		findByIDFn: func(context.Context, string) (*model.Item, error) {
			return availableItem(), nil
		},
	}
	users := &mockUserReader{
		findByIDFn: func(context.Context, string) (*model.User, error) {
			return &model.User{ID: testBookerID, Name: "booker"}, nil
		},
	}
	svc := newTestService(repo, &mockLocker{}, items, users)

	created, err := svc.Create(context.Background(), testBookerID, validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Status != model.StatusWaiting {
		t.Errorf("expected status WAITING, got %s", created.Status)
	}
	if stored.OwnerID != testOwnerID {
		t.Errorf("expected owner %s denormalized onto booking, got %s", testOwnerID, stored.OwnerID)
	}
	if stored.BookerID != testBookerID {
		t.Errorf("expected booker %s, got %s", testBookerID, stored.BookerID)
	}
}

func TestDecideRejectsNonOwner(t *testing.T) {
	repo := &mockBookingRepo{
		findByIDFn: func(context.Context, string) (*model.Booking, error) {
			return waitingBooking(), nil
		},
	}
	svc := newTestService(repo, &mockLocker{}, &mockItemReader{}, &mockUserReader{})

	_, err := svc.Decide(context.Background(), testStrangerID, testBookingID, true)
	assertCode(t, err, apperrors.CodeAccessDenied)
}

func TestDecideRejectsSecondApproval(t *testing.T) {
	repo := &mockBookingRepo{
		findByIDFn: func(context.Context, string) (*model.Booking, error) {
			booking := waitingBooking()
			booking.Status = model.StatusApproved
			return booking, nil
		},
	}
	svc := newTestService(repo, &mockLocker{}, &mockItemReader{}, &mockUserReader{})

	_, err := svc.Decide(context.Background(), testOwnerID, testBookingID, true)
	assertCode(t, err, apperrors.CodeDuplicate)
}

func TestDecideApprovalBlockedByOverlap(t *testing.T) {
	repo := &mockBookingRepo{
		findByIDFn: func(context.Context, string) (*model.Booking, error) {
			return waitingBooking(), nil
		},
		overlapFn: func(_ context.Context, itemID, excludeID string, _, _ time.Time) (bool, error) {
			if excludeID != testBookingID {
				t.Errorf("conflict scan must exclude the booking under decision, got %s", excludeID)
			}
			return true, nil
		},
	}
	svc := newTestService(repo, &mockLocker{}, &mockItemReader{}, &mockUserReader{})

	_, err := svc.Decide(context.Background(), testOwnerID, testBookingID, true)
	assertCode(t, err, apperrors.CodeNotAvailable)
}

func TestDecideRejectionSkipsOverlapScan(t *testing.T) {
	repo := &mockBookingRepo{
		findByIDFn: func(context.Context, string) (*model.Booking, error) {
			return waitingBooking(), nil
		},
		overlapFn: func(context.Context, string, string, time.Time, time.Time) (bool, error) {
			t.Fatal("overlap scan must not run for a rejection")
			return false, nil
		},
		updateStatusFn: func(_ context.Context, id string, status model.BookingStatus) (*model.Booking, error) {
			booking := waitingBooking()
			booking.Status = status
			return booking, nil
		},
	}
	svc := newTestService(repo, &mockLocker{}, &mockItemReader{}, &mockUserReader{})

	decided, err := svc.Decide(context.Background(), testOwnerID, testBookingID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decided.Status != model.StatusRejected {
		t.Errorf("expected REJECTED, got %s", decided.Status)
	}
}

func TestDecideApprovesAndReleasesLock(t *testing.T) {
	repo := &mockBookingRepo{
		findByIDFn: func(context.Context, string) (*model.Booking, error) {
			return waitingBooking(), nil
		},
		updateStatusFn: func(_ context.Context, id string, status model.BookingStatus) (*model.Booking, error) {
			booking := waitingBooking()
			booking.Status = status
			return booking, nil
		},
	}
	locks := &mockLocker{}
	svc := newTestService(repo, locks, &mockItemReader{}, &mockUserReader{})

	decided, err := svc.Decide(context.Background(), testOwnerID, testBookingID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decided.Status != model.StatusApproved {
		t.Errorf("expected APPROVED, got %s", decided.Status)
	}
	if len(locks.released) != 1 || locks.released[0] != testItemID {
		t.Errorf("expected lock on item %s released once, got %v", testItemID, locks.released)
	}
}

func TestDecideContendedLock(t *testing.T) {
	repo := &mockBookingRepo{
		findByIDFn: func(context.Context, string) (*model.Booking, error) {
			return waitingBooking(), nil
		},
	}
	locks := &mockLocker{
		acquireFn: func(context.Context, string) error {
			return bookingrepo.ErrLocked
		},
	}
	svc := newTestService(repo, locks, &mockItemReader{}, &mockUserReader{})

	_, err := svc.Decide(context.Background(), testOwnerID, testBookingID, true)
	assertCode(t, err, apperrors.CodeConflict)
}

func TestGetByIDAllowsParticipantsOnly(t *testing.T) {
	repo := &mockBookingRepo{
		findByIDFn: func(context.Context, string) (*model.Booking, error) {
			return waitingBooking(), nil
		},
	}
	items := &mockItemReader{
		findByIDFn: func(context.Context, string) (*model.Item, error) {
			return availableItem(), nil
		},
	}
	users := &mockUserReader{
		findByIDFn: func(context.Context, string) (*model.User, error) {
			return &model.User{ID: testBookerID, Name: "booker"}, nil
		},
	}
	svc := newTestService(repo, &mockLocker{}, items, users)

	for _, caller := range []string{testBookerID, testOwnerID} {
		if _, err := svc.GetByID(context.Background(), caller, testBookingID); err != nil {
			t.Errorf("caller %s should see the booking: %v", caller, err)
		}
	}

	_, err := svc.GetByID(context.Background(), testStrangerID, testBookingID)
	assertCode(t, err, apperrors.CodeAccessDenied)
}

func TestListRejectsUnknownState(t *testing.T) {
	users := &mockUserReader{
		findByIDFn: func(context.Context, string) (*model.User, error) {
			return &model.User{ID: testBookerID, Name: "booker"}, nil
		},
	}
	svc := newTestService(&mockBookingRepo{}, &mockLocker{}, &mockItemReader{}, users)

	_, err := svc.ListForBooker(context.Background(), testBookerID, "SOMEDAY", 10, 0)
	assertCode(t, err, apperrors.CodeUnsupportedStatus)
}

func TestListDefaultsToAllState(t *testing.T) {
	var gotState model.BookingState
	repo := &mockBookingRepo{
		byBookerFn: func(_ context.Context, _ string, state model.BookingState, _ time.Time, _ int, _ int64) ([]model.Booking, error) {
			gotState = state
			return []model.Booking{*waitingBooking()}, nil
		},
	}
	items := &mockItemReader{
		findByIDsFn: func(context.Context, []string) ([]model.Item, error) {
			return []model.Item{*availableItem()}, nil
		},
	}
	users := &mockUserReader{
		findByIDFn: func(context.Context, string) (*model.User, error) {
			return &model.User{ID: testBookerID, Name: "booker"}, nil
		},
		findByIDsFn: func(context.Context, []string) ([]model.User, error) {
			return []model.User{{ID: testBookerID, Name: "booker"}}, nil
		},
	}
	svc := newTestService(repo, &mockLocker{}, items, users)

	bookings, err := svc.ListForBooker(context.Background(), testBookerID, "", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotState != model.StateAll {
		t.Errorf("expected state ALL, got %s", gotState)
	}
	if len(bookings) != 1 {
		t.Fatalf("expected one booking, got %d", len(bookings))
	}
	if bookings[0].Item == nil || bookings[0].Item.ID != testItemID {
		t.Error("expected booking enriched with its item")
	}
	if bookings[0].Booker == nil || bookings[0].Booker.ID != testBookerID {
		t.Error("expected booking enriched with its booker")
	}
}

func TestListForUnknownUser(t *testing.T) {
	users := &mockUserReader{
		findByIDFn: func(context.Context, string) (*model.User, error) {
			return nil, userrepo.ErrNotFound
		},
	}
	svc := newTestService(&mockBookingRepo{}, &mockLocker{}, &mockItemReader{}, users)

	_, err := svc.ListForOwner(context.Background(), testStrangerID, "ALL", 10, 0)
	assertCode(t, err, apperrors.CodeNotFound)
}
