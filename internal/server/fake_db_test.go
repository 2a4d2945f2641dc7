package server

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/forgecv/internal/db"
)

// fakeDB is an in-memory DBClient.
type fakeDB struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*db.User
	refresh  map[string]refreshRow
	actions  map[uuid.UUID][]actionRow
	feedback []db.Feedback
	logs     []db.ClientLog
	pingErr  error

	passwordErr error
	deleteErr   error
}

type refreshRow struct {
	userID    uuid.UUID
	expiresAt time.Time
}

type actionRow struct {
	day      time.Time
	actionID string
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:   map[uuid.UUID]*db.User{},
		refresh: map[string]refreshRow{},
		actions: map[uuid.UUID][]actionRow{},
	}
}

func (f *fakeDB) CreateUser(_ context.Context, name, email, phone string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	now := time.Now()
	f.users[id] = &db.User{ID: id, Name: name, Email: strings.ToLower(email), Phone: phone, CreatedAt: now, UpdatedAt: now}
	return id, nil
}

func (f *fakeDB) GetUser(_ context.Context, id uuid.UUID) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeDB) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeDB) CheckEmailExists(ctx context.Context, email string) (bool, error) {
	u, err := f.GetUserByEmail(ctx, email)
	return u != nil, err
}

func (f *fakeDB) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.passwordErr != nil {
		return f.passwordErr
	}
	u, ok := f.users[id]
	if !ok {
		return &ErrUserNotFound{UserID: id}
	}
	u.PasswordHash = hash
	u.PasswordSet = true
	return nil
}

func (f *fakeDB) DeleteUser(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.users, id)
	return nil
}

func (f *fakeDB) SaveRefreshToken(_ context.Context, userID uuid.UUID, hash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh[hash] = refreshRow{userID: userID, expiresAt: expiresAt}
	return nil
}

func (f *fakeDB) ConsumeRefreshToken(_ context.Context, hash string, now time.Time) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.refresh[hash]
	delete(f.refresh, hash)
	if !ok || !row.expiresAt.After(now) {
		return uuid.Nil, db.ErrRefreshTokenInvalid
	}
	return row.userID, nil
}

func (f *fakeDB) ChargeAction(_ context.Context, userID uuid.UUID, _ string, actionID string, limit int, now time.Time) (*db.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	day := db.UsageDay(now)
	used, seen := 0, false
	for _, a := range f.actions[userID] {
		if a.day.Equal(day) {
			used++
			seen = seen || (actionID != "" && a.actionID == actionID)
		}
	}
	c := &db.Charge{Used: used, Limit: limit, ResetsAt: db.NextReset(now)}
	switch {
	case seen:
		c.Allowed = true
	case used >= limit:
	default:
		f.actions[userID] = append(f.actions[userID], actionRow{day: day, actionID: actionID})
		c.Allowed, c.Charged, c.Used = true, true, used+1
	}
	return c, nil
}

func (f *fakeDB) UsageStatus(_ context.Context, userID uuid.UUID, limit int, now time.Time) (*db.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	day := db.UsageDay(now)
	used := 0
	for _, a := range f.actions[userID] {
		if a.day.Equal(day) {
			used++
		}
	}
	return &db.Charge{Allowed: used < limit, Used: used, Limit: limit, ResetsAt: db.NextReset(now)}, nil
}

func (f *fakeDB) InsertFeedback(_ context.Context, fb db.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedback = append(f.feedback, fb)
	return nil
}

func (f *fakeDB) InsertClientLog(_ context.Context, l db.ClientLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, l)
	return nil
}

func (f *fakeDB) Ping(context.Context) error {
	return f.pingErr
}
