package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"motivator/internal/domain"
	"motivator/internal/schedule"
	kit "motivator/internal/transport"
	"motivator/internal/transport/telegram/router"
)

type memStore struct {
	mu      sync.Mutex
	users   map[int64]domain.User
	prefs   map[int64]domain.TimingPreference
	moods   []domain.MoodEntry
	records []domain.SendRecord
}

func newMemStore() *memStore {
	return &memStore{users: map[int64]domain.User{}, prefs: map[int64]domain.TimingPreference{}}
}

func (s *memStore) UpsertUser(_ context.Context, u domain.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.users[u.ID]; ok {
		old.Username, old.FirstName = u.Username, u.FirstName
		s.users[u.ID] = old
		return false, nil
	}
	if u.Language == "" {
		u.Language = domain.DefaultLanguage
	}
	u.Frequency = domain.DefaultFrequency
	u.Active = true
	s.users[u.ID] = u
	return true, nil
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

func (s *memStore) update(id int64, fn func(*domain.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return &domain.NotFoundError{Kind: "user", ID: id}
	}
	fn(&u)
	s.users[id] = u
	return nil
}

func (s *memStore) SetUserActive(_ context.Context, id int64, active bool) error {
	return s.update(id, func(u *domain.User) { u.Active = active })
}

func (s *memStore) SetFrequency(_ context.Context, id int64, f int) error {
	return s.update(id, func(u *domain.User) { u.Frequency = f })
}

func (s *memStore) SetLanguage(_ context.Context, id int64, lang string) error {
	return s.update(id, func(u *domain.User) { u.Language = lang })
}

func (s *memStore) SetTimezone(_ context.Context, id int64, tz string) error {
	return s.update(id, func(u *domain.User) { u.Timezone = tz })
}

func (s *memStore) GetTimingPreference(_ context.Context, userID int64) (domain.TimingPreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.prefs[userID]; ok {
		return p, nil
	}
	return domain.DefaultTimingPreference(userID), nil
}

func (s *memStore) SaveTimingPreference(_ context.Context, p domain.TimingPreference) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.prefs[p.UserID] = p
	s.mu.Unlock()
	return nil
}

func (s *memStore) AddMoodEntry(_ context.Context, e domain.MoodEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = int64(len(s.moods) + 1)
	s.moods = append(s.moods, e)
	return e.ID, nil
}

func (s *memStore) GetRecentMoodEntries(_ context.Context, userID int64, since time.Time) ([]domain.MoodEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MoodEntry
	for _, m := range s.moods {
		if m.UserID == userID && !m.At.Before(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) AppendSendRecord(_ context.Context, r domain.SendRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = int64(len(s.records) + 1)
	s.records = append(s.records, r)
	return r.ID, nil
}

func (s *memStore) RecentContentIDs(_ context.Context, userID int64, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int64
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		if r := s.records[i]; r.UserID == userID && r.ContentID != 0 {
			out = append(out, r.ContentID)
		}
	}
	return out, nil
}

func (s *memStore) RecordEngagement(_ context.Context, userID int64, messageID int, score float64, at time.Time) (domain.SendRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		r := &s.records[i]
		if r.UserID != userID || r.MessageID != messageID || r.Kind == domain.KindMoodReminder {
			continue
		}
		if r.Engagement != nil {
			return domain.SendRecord{}, domain.ErrAlreadyRated
		}
		sc := score
		d := at.Sub(*r.SentAt)
		r.Engagement, r.ResponseDelay = &sc, &d
		return *r, nil
	}
	return domain.SendRecord{}, &domain.NotFoundError{Kind: "message", ID: int64(messageID)}
}

func (s *memStore) ListSendRecords(_ context.Context, userID int64, limit int) ([]domain.SendRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SendRecord
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		if s.records[i].UserID == userID {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

func (s *memStore) SendStats(context.Context, time.Time) (domain.SendStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SendStats{Users: len(s.users), Delivered: len(s.records)}, nil
}

type fixedContent struct {
	items []domain.ContentItem
}

func (c *fixedContent) Select(_ context.Context, lang string, cat domain.Category, exclude []int64) (domain.ContentItem, error) {
	for _, it := range c.items {
		if it.Language != lang || it.Category != cat {
			continue
		}
		skip := false
		for _, id := range exclude {
			skip = skip || id == it.ID
		}
		if !skip {
			return it, nil
		}
	}
	return domain.ContentItem{}, domain.ErrContentNotFound
}

func (c *fixedContent) Supports(lang string) bool {
	return lang == "en" || lang == "de"
}

func (c *fixedContent) Languages() []string {
	return []string{"de", "en"}
}

type recMessenger struct {
	delivered []domain.ContentItem
	err       error
}

func (m *recMessenger) Deliver(_ context.Context, _ int64, item domain.ContentItem) (schedule.Receipt, error) {
	if m.err != nil {
		return schedule.Receipt{}, m.err
	}
	m.delivered = append(m.delivered, item)
	return schedule.Receipt{MessageID: 500 + len(m.delivered)}, nil
}

func (m *recMessenger) Remind(context.Context, int64, string) (schedule.Receipt, error) {
	return schedule.Receipt{}, nil
}

type edit struct {
	ref  kit.MessageRef
	text string
	opt  *kit.SendOptions
}

type recAdapter struct {
	texts []string
	opts  []*kit.SendOptions
	edits []edit
}

func (a *recAdapter) Start(context.Context, chan<- kit.Update) error { return nil }

func (a *recAdapter) Stop(context.Context) error { return nil }

func (a *recAdapter) SendText(_ context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	a.texts = append(a.texts, text)
	a.opts = append(a.opts, opt)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(a.texts)}, nil
}

func (a *recAdapter) EditText(_ context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	a.edits = append(a.edits, edit{ref: ref, text: text, opt: opt})
	return nil
}

func (a *recAdapter) AnswerCallback(context.Context, string, string) error { return nil }

func (a *recAdapter) last() string {
	if len(a.texts) == 0 {
		return ""
	}
	return a.texts[len(a.texts)-1]
}

func command(ad *recAdapter, chatID int64, text string) *router.Request {
	req := &router.Request{
		Chat:    kit.ChatTarget{ChatID: chatID},
		FromID:  chatID,
		Message: &kit.Message{ChatID: chatID, FromID: chatID, FirstName: "Ana", Text: text},
		Adapter: ad,
		ReqID:   "req1",
	}
	head, rest, _ := strings.Cut(text, " ")
	req.Command = head
	req.Rest = rest
	req.Args = strings.Fields(rest)
	return req
}

func callback(ad *recAdapter, chatID int64, messageID int, data string) *router.Request {
	_, payload, _ := strings.Cut(data, ":")
	return &router.Request{
		Chat:     kit.ChatTarget{ChatID: chatID},
		FromID:   chatID,
		Callback: &kit.Callback{ID: "cb", FromID: chatID, ChatID: chatID, MessageID: messageID, Data: data},
		Payload:  payload,
		Adapter:  ad,
		ReqID:    "req2",
	}
}
