package booking

import (
	"sort"
	"sync"

	"examroom/internal/domain"
	"examroom/internal/realtime"
)

type filterKind int

const (
	filterAll filterKind = iota
	filterTeacher
	filterSubjects
)

// SubscriptionFilter selects which bookings a live view follows.
type SubscriptionFilter struct {
	kind      filterKind
	teacherID int64
	subjects  []domain.Subject
}

// AllBookings follows every booking.
func AllBookings() SubscriptionFilter {
	return SubscriptionFilter{kind: filterAll}
}

// ByTeacher follows the bookings made by one teacher, in any status.
func ByTeacher(teacherID int64) SubscriptionFilter {
	return SubscriptionFilter{kind: filterTeacher, teacherID: teacherID}
}

// BySubjects follows approved bookings of the listed subjects.
func BySubjects(subjects []domain.Subject) SubscriptionFilter {
	return SubscriptionFilter{kind: filterSubjects, subjects: subjects}
}

// FilterForUser picks the audience filter for a user's role.
func FilterForUser(u *domain.User) SubscriptionFilter {
	switch u.Role {
	case domain.RoleAdmin:
		return AllBookings()
	case domain.RoleTeacher:
		return ByTeacher(u.ID)
	}
	return BySubjects(u.RegisteredSubjects)
}

func (f SubscriptionFilter) queries() []domain.BookingFilter {
	switch f.kind {
	case filterAll:
		return []domain.BookingFilter{{}}
	case filterTeacher:
		if f.teacherID == 0 {
			return nil
		}
		return []domain.BookingFilter{{TeacherID: f.teacherID}}
	}

	seen := make(map[domain.Subject]struct{}, len(f.subjects))
	out := make([]domain.BookingFilter, 0, len(f.subjects))
	for _, subj := range f.subjects {
		if subj.SubjectNumber == "" {
			continue
		}
		key := domain.Subject{SubjectNumber: subj.SubjectNumber, SubjectSubNumber: subj.SubjectSubNumber}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		sub := subj.SubjectSubNumber
		out = append(out, domain.BookingFilter{
			SubjectNumber:    subj.SubjectNumber,
			SubjectSubNumber: &sub,
			Statuses:         []domain.BookingStatus{domain.BookingApproved},
		})
	}
	return out
}

// Subscription is a live, merged view over one or more booking queries.
// Updates always holds the latest merged list; a slow reader skips
// intermediate states but never sees a stale one after a newer one.
type Subscription struct {
	updates chan []domain.Booking
	errs    chan error

	mu        sync.Mutex
	closed    bool
	merger    *snapshotMerger
	disposers []realtime.Disposer
	once      sync.Once
}

func newSubscription(sources int) *Subscription {
	return &Subscription{
		updates: make(chan []domain.Booking, 1),
		errs:    make(chan error, 1),
		merger:  newSnapshotMerger(sources),
	}
}

func (s *Subscription) Updates() <-chan []domain.Booking { return s.updates }

// Errors carries collaborator failures. The subscription stays open; a later
// successful query still produces an update.
func (s *Subscription) Errors() <-chan error { return s.errs }

func (s *Subscription) addDisposer(d realtime.Disposer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposers = append(s.disposers, d)
}

func (s *Subscription) apply(source int, snapshot []domain.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.replaceLocked(s.merger.apply(source, snapshot))
}

func (s *Subscription) publish(list []domain.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.replaceLocked(list)
}

func (s *Subscription) replaceLocked(list []domain.Booking) {
	select {
	case <-s.updates:
	default:
	}
	s.updates <- list
}

func (s *Subscription) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case <-s.errs:
	default:
	}
	s.errs <- err
}

// Close stops every underlying query and closes both channels. It is safe to
// call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		disposers := s.disposers
		s.disposers = nil
		s.mu.Unlock()

		// Disposers wait for in-flight callbacks, which take s.mu.
		for _, d := range disposers {
			d()
		}

		s.mu.Lock()
		close(s.updates)
		close(s.errs)
		s.mu.Unlock()
	})
}

// snapshotMerger combines per-source snapshots into one list. A booking seen
// by several sources takes the version from the most recently updated source.
type snapshotMerger struct {
	seq     uint64
	sources []mergeSource
}

type mergeSource struct {
	seq     uint64
	records map[int64]domain.Booking
}

func newSnapshotMerger(n int) *snapshotMerger {
	return &snapshotMerger{sources: make([]mergeSource, n)}
}

func (m *snapshotMerger) apply(source int, snapshot []domain.Booking) []domain.Booking {
	m.seq++
	records := make(map[int64]domain.Booking, len(snapshot))
	for _, b := range snapshot {
		records[b.ID] = b
	}
	m.sources[source] = mergeSource{seq: m.seq, records: records}
	return m.merged()
}

func (m *snapshotMerger) merged() []domain.Booking {
	best := make(map[int64]domain.Booking)
	bestSeq := make(map[int64]uint64)
	for _, src := range m.sources {
		for id, b := range src.records {
			if seq, ok := bestSeq[id]; ok && seq >= src.seq {
				continue
			}
			best[id] = b
			bestSeq[id] = src.seq
		}
	}

	out := make([]domain.Booking, 0, len(best))
	for _, b := range best {
		out = append(out, b)
	}
	sortBookings(out)
	return out
}

func sortBookings(list []domain.Booking) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
}
