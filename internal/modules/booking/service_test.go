package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"examroom/internal/database"
	"examroom/internal/domain"
	"examroom/internal/pkg/timeslot"
	"examroom/internal/realtime"
	"examroom/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, 4, 20, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type fixture struct {
	svc        *Service
	bookings   *repository.BookingRepository
	users      *repository.UserRepository
	classrooms *repository.ClassroomRepository
	teacher    *domain.User
	other      *domain.User
	student    *domain.User
	room       *domain.Classroom
}

func setup(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db, ":memory:", zap.NewNop(), repository.Models()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	feed := realtime.NewFeed(nil)
	f := &fixture{
		bookings:   repository.NewBookingRepository(db, feed),
		users:      repository.NewUserRepository(db, feed),
		classrooms: repository.NewClassroomRepository(db, feed),
	}

	f.teacher = &domain.User{
		Email:        "kim@uni.edu",
		PasswordHash: "x",
		Role:         domain.RoleTeacher,
		Name:         "Dr. Kim",
		EnrolledSubjects: []domain.Subject{
			{SubjectNumber: "CS101", SubjectName: "Intro to CS", SubjectSubNumber: "01"},
		},
	}
	f.other = &domain.User{
		Email:            "lee@uni.edu",
		PasswordHash:     "x",
		Role:             domain.RoleTeacher,
		Name:             "Dr. Lee",
		EnrolledSubjects: []domain.Subject{{SubjectNumber: "MA200", SubjectName: "Calculus"}},
	}
	f.student = &domain.User{
		Email:              "sam@uni.edu",
		PasswordHash:       "x",
		Role:               domain.RoleStudent,
		Name:               "Sam",
		RegisteredSubjects: []domain.Subject{{SubjectNumber: "CS101", SubjectSubNumber: "01"}},
	}
	for _, u := range []*domain.User{f.teacher, f.other, f.student} {
		require.NoError(t, f.users.Create(ctx, u))
	}

	f.room = &domain.Classroom{Name: "R1", Building: "Main", Capacity: 40}
	require.NoError(t, f.classrooms.Create(ctx, f.room))

	opts = append([]Option{WithClock(fixedClock)}, opts...)
	f.svc = NewService(f.bookings, f.classrooms, f.users, timeslot.DefaultOperatingHours, zap.NewNop(), opts...)
	return f
}

func (f *fixture) teacherActor() Actor { return Actor{UserID: f.teacher.ID, Role: domain.RoleTeacher} }

func (f *fixture) request(start, end string) CreateBookingRequest {
	return CreateBookingRequest{
		ClassroomID:      f.room.ID,
		Date:             "2025-05-01",
		StartTime:        start,
		EndTime:          end,
		SubjectNumber:    "CS101",
		SubjectSubNumber: "01",
	}
}

func TestCreateBooking_Success(t *testing.T) {
	f := setup(t)

	b, err := f.svc.CreateBooking(context.Background(), f.teacherActor(), f.request("9:00", "11:00"))
	require.NoError(t, err)

	assert.NotZero(t, b.ID)
	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, "09:00", b.StartTime)
	assert.Equal(t, "11:00", b.EndTime)
	assert.Equal(t, "Intro to CS", b.SubjectName)
	assert.Equal(t, "Dr. Kim", b.TeacherName)
	assert.Equal(t, f.teacher.ID, b.TeacherID)
}

func TestCreateBooking_Conflicts(t *testing.T) {
	for _, atomic := range []bool{false, true} {
		t.Run(map[bool]string{false: "read-then-write", true: "atomic"}[atomic], func(t *testing.T) {
			f := setup(t, WithAtomicCreate(atomic))
			ctx := context.Background()

			first, err := f.svc.CreateBooking(ctx, f.teacherActor(), f.request("09:00", "11:00"))
			require.NoError(t, err)

			_, err = f.svc.CreateBooking(ctx, f.teacherActor(), f.request("10:00", "12:00"))
			require.ErrorIs(t, err, ErrRoomConflict)
			assert.Equal(t, RoomConflictMessage, err.Error())

			var ce *ConflictError
			require.ErrorAs(t, err, &ce)
			if ce.Conflicting != nil {
				assert.Equal(t, first.ID, ce.Conflicting.ID)
			}

			_, err = f.svc.CreateBooking(ctx, f.teacherActor(), f.request("11:00", "12:00"))
			assert.NoError(t, err, "back-to-back bookings do not conflict")
		})
	}
}

func TestCreateBooking_RejectedDoesNotBlock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, f.teacherActor(), f.request("09:00", "11:00"))
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, b.ID, domain.BookingRejected)
	require.NoError(t, err)

	_, err = f.svc.CreateBooking(ctx, f.teacherActor(), f.request("09:00", "11:00"))
	assert.NoError(t, err)
}

func TestCreateBooking_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateBookingRequest)
		want   error
	}{
		{"missing classroom", func(r *CreateBookingRequest) { r.ClassroomID = 0 }, ErrMissingField},
		{"missing date", func(r *CreateBookingRequest) { r.Date = "" }, ErrMissingField},
		{"missing subject", func(r *CreateBookingRequest) { r.SubjectNumber = " " }, ErrMissingField},
		{"bad start", func(r *CreateBookingRequest) { r.StartTime = "9am" }, timeslot.ErrInvalidFormat},
		{"bad date", func(r *CreateBookingRequest) { r.Date = "01/05/2025" }, timeslot.ErrInvalidFormat},
		{"before opening", func(r *CreateBookingRequest) { r.StartTime = "07:00" }, timeslot.ErrOutsideHours},
		{"after closing", func(r *CreateBookingRequest) { r.EndTime = "18:30" }, timeslot.ErrOutsideHours},
		{"end before start", func(r *CreateBookingRequest) { r.StartTime, r.EndTime = "11:00", "10:00" }, timeslot.ErrEndNotAfter},
		{"past date", func(r *CreateBookingRequest) { r.Date = "2025-04-19" }, ErrPastDate},
		{"not enrolled", func(r *CreateBookingRequest) { r.SubjectSubNumber = "02" }, ErrNotEnrolled},
		{"unknown classroom", func(r *CreateBookingRequest) { r.ClassroomID = 999 }, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request("09:00", "11:00")
			tt.mutate(&req)

			_, err := f.svc.CreateBooking(ctx, f.teacherActor(), req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	list, err := f.bookings.Find(ctx, domain.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, list, "rejected requests write nothing")
}

func TestCreateBooking_SameDayIsAllowed(t *testing.T) {
	f := setup(t)
	req := f.request("10:00", "11:00")
	req.Date = "2025-04-20"

	_, err := f.svc.CreateBooking(context.Background(), f.teacherActor(), req)
	assert.NoError(t, err)
}

func TestCreateBooking_OnlyTeachers(t *testing.T) {
	f := setup(t)

	_, err := f.svc.CreateBooking(context.Background(), Actor{UserID: f.student.ID, Role: domain.RoleStudent}, f.request("09:00", "10:00"))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateBookingAtomic_Concurrent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateBookingAtomic(ctx, f.teacherActor(), f.request("09:00", "11:00"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrRoomConflict)
	}
	assert.Equal(t, 1, created)
}

// MockBookingRepository lets tests interleave two creates between the
// read and the write.
type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) CreateIfFree(ctx context.Context, b *domain.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Find(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id int64, expected, status domain.BookingStatus, at time.Time) error {
	args := m.Called(ctx, id, expected, status, at)
	return args.Error(0)
}

func (m *MockBookingRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBookingRepository) Subscribe(filter domain.BookingFilter, onChange func([]domain.Booking), onError func(error)) realtime.Disposer {
	m.Called(filter)
	return func() {}
}

type stubUsers struct{ user *domain.User }

func (s stubUsers) GetByID(ctx context.Context, id int64) (*domain.User, error) { return s.user, nil }

func (s stubUsers) Watch(userID int64, onChange func(*domain.User), onError func(error)) realtime.Disposer {
	return func() {}
}

type stubClassrooms struct{}

func (stubClassrooms) GetByID(ctx context.Context, id int64) (*domain.Classroom, error) {
	return &domain.Classroom{ID: id, Name: "R1", Capacity: 10}, nil
}

func newMockedService(repo *MockBookingRepository) *Service {
	teacher := &domain.User{
		ID:               7,
		Role:             domain.RoleTeacher,
		Name:             "T",
		EnrolledSubjects: []domain.Subject{{SubjectNumber: "CS101"}},
	}
	return NewService(repo, stubClassrooms{}, stubUsers{user: teacher}, timeslot.DefaultOperatingHours, zap.NewNop(), WithClock(fixedClock))
}

func TestCreateBooking_ReadThenWriteRace(t *testing.T) {
	repo := new(MockBookingRepository)
	svc := newMockedService(repo)

	// Both requests read the store before either has written.
	repo.On("Find", mock.Anything, mock.Anything).Return([]domain.Booking{}, nil).Twice()
	repo.On("Create", mock.Anything, mock.Anything).Return(nil).Twice()

	req := CreateBookingRequest{ClassroomID: 1, Date: "2025-05-01", StartTime: "09:00", EndTime: "11:00", SubjectNumber: "CS101"}
	actor := Actor{UserID: 7, Role: domain.RoleTeacher}

	_, err1 := svc.CreateBooking(context.Background(), actor, req)
	_, err2 := svc.CreateBooking(context.Background(), actor, req)

	assert.NoError(t, err1)
	assert.NoError(t, err2)
	repo.AssertNumberOfCalls(t, "Create", 2)
}

func TestCreateBooking_StoreOverlapIsRoomConflict(t *testing.T) {
	repo := new(MockBookingRepository)
	svc := newMockedService(repo)

	// The snapshot looked free but the store's constraint rejected the insert.
	repo.On("Find", mock.Anything, mock.Anything).Return([]domain.Booking{}, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(&domain.OverlapError{})

	req := CreateBookingRequest{ClassroomID: 1, Date: "2025-05-01", StartTime: "09:00", EndTime: "11:00", SubjectNumber: "CS101"}
	b, err := svc.CreateBooking(context.Background(), Actor{UserID: 7, Role: domain.RoleTeacher}, req)

	assert.Nil(t, b)
	require.ErrorIs(t, err, ErrRoomConflict)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Nil(t, ce.Conflicting)
}

func TestCreateBooking_CollaboratorErrorPassesThrough(t *testing.T) {
	repo := new(MockBookingRepository)
	svc := newMockedService(repo)

	storeErr := domain.NewCollaboratorError("find bookings", errors.New("connection refused"))
	repo.On("Find", mock.Anything, mock.Anything).Return(nil, storeErr)

	req := CreateBookingRequest{ClassroomID: 1, Date: "2025-05-01", StartTime: "09:00", EndTime: "11:00", SubjectNumber: "CS101"}
	_, err := svc.CreateBooking(context.Background(), Actor{UserID: 7, Role: domain.RoleTeacher}, req)

	require.Error(t, err)
	assert.Equal(t, "connection refused", err.Error())
	var ce *domain.CollaboratorError
	assert.ErrorAs(t, err, &ce)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCheckConflict_Service(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, f.teacherActor(), f.request("09:00", "11:00"))
	require.NoError(t, err)

	res, err := f.svc.CheckConflict(ctx, Proposal{ClassroomID: f.room.ID, Date: "2025-05-01", StartTime: "10:30", EndTime: "12:00"})
	require.NoError(t, err)
	require.True(t, res.HasConflict)
	assert.Equal(t, b.ID, res.ConflictingBooking.ID)

	res, err = f.svc.CheckConflict(ctx, Proposal{ClassroomID: f.room.ID, Date: "2025-05-01", StartTime: "09:00", EndTime: "11:00", ExcludeID: b.ID})
	require.NoError(t, err)
	assert.False(t, res.HasConflict)

	_, err = f.svc.CheckConflict(ctx, Proposal{ClassroomID: f.room.ID, Date: "2025-05-01", StartTime: "17:00", EndTime: "19:00"})
	assert.ErrorIs(t, err, timeslot.ErrOutsideHours)
}

func TestSetStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, f.teacherActor(), f.request("09:00", "11:00"))
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, b.ID, domain.BookingPending)
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := f.svc.SetStatus(ctx, b.ID, domain.BookingApproved)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingApproved, updated.Status)

	_, err = f.svc.SetStatus(ctx, b.ID, domain.BookingRejected)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = f.svc.SetStatus(ctx, 12345, domain.BookingApproved)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteBooking(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, f.teacherActor(), f.request("09:00", "11:00"))
	require.NoError(t, err)

	err = f.svc.DeleteBooking(ctx, Actor{UserID: f.other.ID, Role: domain.RoleTeacher}, b.ID)
	assert.ErrorIs(t, err, ErrForbidden, "teachers cannot delete other teachers' bookings")

	err = f.svc.DeleteBooking(ctx, Actor{UserID: f.student.ID, Role: domain.RoleStudent}, b.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.svc.DeleteBooking(ctx, f.teacherActor(), b.ID))
	_, err = f.bookings.GetByID(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	approved, err := f.svc.CreateBooking(ctx, f.teacherActor(), f.request("13:00", "14:00"))
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, approved.ID, domain.BookingApproved)
	require.NoError(t, err)

	err = f.svc.DeleteBooking(ctx, f.teacherActor(), approved.ID)
	assert.ErrorIs(t, err, ErrForbidden, "approved bookings are admin-only")

	require.NoError(t, f.svc.DeleteBooking(ctx, Actor{UserID: 1, Role: domain.RoleAdmin}, approved.ID))

	err = f.svc.DeleteBooking(ctx, Actor{UserID: 1, Role: domain.RoleAdmin}, approved.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListBookings_ByRole(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	pending, err := f.svc.CreateBooking(ctx, f.teacherActor(), f.request("09:00", "10:00"))
	require.NoError(t, err)
	approved, err := f.svc.CreateBooking(ctx, f.teacherActor(), f.request("13:00", "14:00"))
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, approved.ID, domain.BookingApproved)
	require.NoError(t, err)

	otherReq := f.request("15:00", "16:00")
	otherReq.SubjectNumber, otherReq.SubjectSubNumber = "MA200", ""
	_, err = f.svc.CreateBooking(ctx, Actor{UserID: f.other.ID, Role: domain.RoleTeacher}, otherReq)
	require.NoError(t, err)

	all, err := f.svc.ListBookings(ctx, Actor{UserID: 1, Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	own, err := f.svc.ListBookings(ctx, f.teacherActor())
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, pending.ID, own[0].ID)

	seen, err := f.svc.ListBookings(ctx, Actor{UserID: f.student.ID, Role: domain.RoleStudent})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, approved.ID, seen[0].ID)
}

func TestExpireStalePending(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	stale := &domain.Booking{
		ClassroomID:   f.room.ID,
		Date:          "2025-04-10",
		StartTime:     "09:00",
		EndTime:       "10:00",
		SubjectNumber: "CS101",
		TeacherID:     f.teacher.ID,
		Status:        domain.BookingPending,
		CreatedAt:     fixedNow,
		UpdatedAt:     fixedNow,
	}
	require.NoError(t, f.bookings.Create(ctx, stale))

	upcoming, err := f.svc.CreateBooking(ctx, f.teacherActor(), f.request("09:00", "10:00"))
	require.NoError(t, err)

	n, err := f.svc.ExpireStalePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.bookings.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingRejected, got.Status)

	got, err = f.bookings.GetByID(ctx, upcoming.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, got.Status)

	n, err = f.svc.ExpireStalePending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func waitFor(t *testing.T, sub *Subscription, pred func([]domain.Booking) bool) []domain.Booking {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case list, ok := <-sub.Updates():
			require.True(t, ok, "subscription closed")
			if pred(list) {
				return list
			}
		case <-timeout:
			t.Fatal("timed out waiting for subscription update")
			return nil
		}
	}
}

func TestSubscribe_FollowsWrites(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	sub := f.svc.Subscribe(ByTeacher(f.teacher.ID))
	defer sub.Close()

	waitFor(t, sub, func(l []domain.Booking) bool { return len(l) == 0 })

	b, err := f.svc.CreateBooking(ctx, f.teacherActor(), f.request("09:00", "10:00"))
	require.NoError(t, err)
	list := waitFor(t, sub, func(l []domain.Booking) bool { return len(l) == 1 })
	assert.Equal(t, b.ID, list[0].ID)

	_, err = f.svc.SetStatus(ctx, b.ID, domain.BookingApproved)
	require.NoError(t, err)
	waitFor(t, sub, func(l []domain.Booking) bool {
		return len(l) == 1 && l[0].Status == domain.BookingApproved
	})
}

func TestSubscribe_StudentSubjects(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	sub := f.svc.Subscribe(BySubjects([]domain.Subject{
		{SubjectNumber: "CS101", SubjectSubNumber: "01"},
		{SubjectNumber: "MA200"},
	}))
	defer sub.Close()

	b, err := f.svc.CreateBooking(ctx, f.teacherActor(), f.request("09:00", "10:00"))
	require.NoError(t, err)

	otherReq := f.request("13:00", "14:00")
	otherReq.SubjectNumber, otherReq.SubjectSubNumber = "MA200", ""
	o, err := f.svc.CreateBooking(ctx, Actor{UserID: f.other.ID, Role: domain.RoleTeacher}, otherReq)
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, b.ID, domain.BookingApproved)
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, o.ID, domain.BookingApproved)
	require.NoError(t, err)

	list := waitFor(t, sub, func(l []domain.Booking) bool { return len(l) == 2 })
	assert.Equal(t, []int64{b.ID, o.ID}, []int64{list[0].ID, list[1].ID})
}

func TestSubscribe_NoSubjectsEmitsEmpty(t *testing.T) {
	f := setup(t)

	sub := f.svc.Subscribe(BySubjects(nil))
	list := waitFor(t, sub, func([]domain.Booking) bool { return true })
	assert.Empty(t, list)

	sub.Close()
	sub.Close()
}
