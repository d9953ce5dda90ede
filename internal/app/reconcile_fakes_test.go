package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/example/citysync/internal/ports/secondary"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// Ensure fakeStore implements the interface
var _ secondary.ReconcileStore = (*fakeStore)(nil)

// fakeStore is an in-memory ReconcileStore with the same predicate and
// all-or-nothing write semantics as the SQL stores.
type fakeStore struct {
	mu         sync.Mutex
	chats      []secondary.ChatRecord
	users      map[int64]*secondary.UserRecord
	loadErr    error
	fetchErr   error
	failApplyN int // fail the Nth ApplyUpdates call (1-based); 0 never fails
	applyCalls int
	fetches    int
}

func newFakeStore(chats ...secondary.ChatRecord) *fakeStore {
	return &fakeStore{chats: chats, users: make(map[int64]*secondary.UserRecord)}
}

func (s *fakeStore) addUser(id, telegramID int64, city string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = &secondary.UserRecord{
		ID:                  id,
		TelegramID:          telegramID,
		FirstName:           "user",
		City:                city,
		SubscriptionExpires: testNow.Add(30 * 24 * time.Hour),
	}
}

func (s *fakeStore) addExpiredUser(id, telegramID int64) {
	s.addUser(id, telegramID, "")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id].SubscriptionExpires = testNow.Add(-time.Hour)
}

func (s *fakeStore) user(id int64) secondary.UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

func (s *fakeStore) LoadChats(ctx context.Context) ([]secondary.ChatRecord, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make([]secondary.ChatRecord, len(s.chats))
	copy(out, s.chats)
	return out, nil
}

func (s *fakeStore) FetchPending(ctx context.Context, q secondary.PendingQuery) ([]secondary.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	out := []secondary.UserRecord{}
	for _, u := range s.users {
		if u.SubscriptionExpires.After(q.Now) && u.CityChatID == 0 && u.TelegramID > q.AfterTelegramID {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TelegramID < out[j].TelegramID })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *fakeStore) ApplyUpdates(ctx context.Context, updates []secondary.CityUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyCalls++
	if s.applyCalls == s.failApplyN {
		return errors.New("disk I/O error")
	}
	for _, u := range updates {
		if _, ok := s.users[u.UserID]; !ok {
			return errors.New("user not found")
		}
	}
	for _, u := range updates {
		s.users[u.UserID].City = u.City
		s.users[u.UserID].CityChatID = u.ChatRecordID
	}
	return nil
}

func (s *fakeStore) CountReconciled(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.users {
		if u.SubscriptionExpires.After(now) && u.CityChatID != 0 {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) CountPending(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.users {
		if u.SubscriptionExpires.After(now) && u.CityChatID == 0 {
			n++
		}
	}
	return n, nil
}

type memberKey struct{ chatID, userID int64 }

// Ensure fakeClient implements the interface
var _ secondary.MembershipClient = (*fakeClient)(nil)

// fakeClient answers membership queries from a table. Unknown pairs are "left".
// It records the peak number of concurrent calls.
type fakeClient struct {
	mu          sync.Mutex
	statuses    map[memberKey]string
	errs        map[memberKey]error
	delays      map[int64]time.Duration // per chat
	onCall      func()                  // runs outside the lock before answering
	calls       int
	inFlight    int
	maxInFlight int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		statuses: make(map[memberKey]string),
		errs:     make(map[memberKey]error),
		delays:   make(map[int64]time.Duration),
	}
}

func (c *fakeClient) setStatus(chatID, userID int64, status string) {
	c.statuses[memberKey{chatID, userID}] = status
}

func (c *fakeClient) setErr(chatID, userID int64, err error) {
	c.errs[memberKey{chatID, userID}] = err
}

func (c *fakeClient) GetMemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	c.mu.Lock()
	c.calls++
	c.inFlight++
	if c.inFlight > c.maxInFlight {
		c.maxInFlight = c.inFlight
	}
	delay := c.delays[chatID]
	key := memberKey{chatID, userID}
	status, err := c.statuses[key], c.errs[key]
	onCall := c.onCall
	c.mu.Unlock()

	if onCall != nil {
		onCall()
	}

	defer func() {
		c.mu.Lock()
		c.inFlight--
		c.mu.Unlock()
	}()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return "", err
	}
	if status == "" {
		status = "left"
	}
	return status, nil
}

func (c *fakeClient) peak() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxInFlight
}

func (c *fakeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
