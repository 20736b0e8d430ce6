package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"motivator/internal/domain"
)

type memStore struct {
	mu      sync.Mutex
	users   map[int64]domain.User
	prefs   map[int64]domain.TimingPreference
	moods   []domain.MoodEntry
	records []domain.SendRecord
	pingErr error
	lastErr error // returned by GetLastSendTime
	saves   int
	nextID  int64
}

func newMemStore() *memStore {
	return &memStore{
		users: map[int64]domain.User{},
		prefs: map[int64]domain.TimingPreference{},
	}
}

func (s *memStore) addUser(id int64, freq int, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = domain.User{ID: id, Language: "en", Frequency: freq, Active: active, Timezone: "UTC"}
}

func (s *memStore) addMood(id int64, score int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.moods = append(s.moods, domain.MoodEntry{ID: s.nextID, UserID: id, Score: score, At: at})
}

func (s *memStore) setPref(p domain.TimingPreference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[p.UserID] = p
}

func (s *memStore) snapshot() []domain.SendRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SendRecord(nil), s.records...)
}

func (s *memStore) Ping(context.Context) error { return s.pingErr }

func (s *memStore) ListActiveUsers(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id, u := range s.users {
		if u.Active {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memStore) GetUser(_ context.Context, id int64) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, &domain.NotFoundError{Kind: "user", ID: id}
	}
	return u, nil
}

func (s *memStore) GetTimingPreference(_ context.Context, id int64) (domain.TimingPreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return domain.TimingPreference{}, &domain.NotFoundError{Kind: "user", ID: id}
	}
	p, ok := s.prefs[id]
	if !ok {
		p = domain.DefaultTimingPreference(id)
		s.prefs[id] = p
	}
	return p, nil
}

func (s *memStore) SaveTimingPreference(_ context.Context, p domain.TimingPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[p.UserID] = p
	s.saves++
	return nil
}

func (s *memStore) GetRecentMoodEntries(_ context.Context, id int64, since time.Time) ([]domain.MoodEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MoodEntry
	for _, m := range s.moods {
		if m.UserID == id && !m.At.Before(since) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	return out, nil
}

func (s *memStore) GetTodaySendCount(_ context.Context, id int64, dayStart time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if r.UserID == id && r.Kind == domain.KindScheduled && r.SentAt != nil && !r.SentAt.Before(dayStart) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) GetLastSendTime(_ context.Context, id int64) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr != nil {
		return nil, s.lastErr
	}
	var last *time.Time
	for _, r := range s.records {
		if r.UserID == id && r.Kind == domain.KindScheduled && r.SentAt != nil {
			if last == nil || r.SentAt.After(*last) {
				t := *r.SentAt
				last = &t
			}
		}
	}
	return last, nil
}

func (s *memStore) AppendSendRecord(_ context.Context, r domain.SendRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = s.nextID
	s.records = append(s.records, r)
	return r.ID, nil
}

func (s *memStore) GetSendHistory(_ context.Context, id int64, since time.Time) ([]domain.SendRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SendRecord
	for _, r := range s.records {
		if r.UserID == id && r.Kind == domain.KindScheduled && !r.ScheduledAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) RecentContentIDs(_ context.Context, id int64, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int64
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		r := s.records[i]
		if r.UserID == id && r.Kind == domain.KindScheduled && r.SentAt != nil {
			out = append(out, r.ContentID)
		}
	}
	return out, nil
}

func (s *memStore) MoodReminderSentSince(_ context.Context, id int64, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.UserID == id && r.Kind == domain.KindMoodReminder && r.SentAt != nil && !r.SentAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

type stubContent struct {
	err error
}

func (c stubContent) Select(_ context.Context, lang string, cat domain.Category, exclude []int64) (domain.ContentItem, error) {
	if c.err != nil {
		return domain.ContentItem{}, c.err
	}
	return domain.ContentItem{ID: int64(cat) + 1, Language: lang, Category: cat, Type: domain.ContentText, Text: "keep going"}, nil
}

func (stubContent) MoodReminder(string) string { return "how are you feeling today?" }

type stubMessenger struct {
	mu        sync.Mutex
	now       func() time.Time
	deliver   func(ctx context.Context, userID int64) error
	delivered []int64
	reminded  []int64
	nextMsg   int
}

func (m *stubMessenger) Deliver(ctx context.Context, userID int64, _ domain.ContentItem) (Receipt, error) {
	if m.deliver != nil {
		if err := m.deliver(ctx, userID); err != nil {
			return Receipt{}, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMsg++
	m.delivered = append(m.delivered, userID)
	return Receipt{MessageID: m.nextMsg, At: m.now()}, nil
}

func (m *stubMessenger) Remind(_ context.Context, userID int64, _ string) (Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMsg++
	m.reminded = append(m.reminded, userID)
	return Receipt{MessageID: m.nextMsg, At: m.now()}, nil
}

func (m *stubMessenger) deliveries() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.delivered...)
}

// fixedSampler always returns v.
type fixedSampler float64

func (f fixedSampler) Float64() float64 { return float64(f) }

// testClock is a settable clock shared by the orchestrator and messenger.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func tm(day, hour, minute int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, 0, 0, time.UTC)
}
