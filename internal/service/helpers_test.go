package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"smsglue/internal/client"
	"smsglue/internal/encryption"
	"smsglue/internal/models"
	"smsglue/internal/repository"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestCodec() *encryption.Codec {
	return encryption.NewCodec(testSecret)
}

// memoryStore is an in-process BlobStore that counts writes.
type memoryStore struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	saves  int
	failOn repository.Namespace
}

func newMemoryStore() *memoryStore {
	return &memoryStore{blobs: make(map[string][]byte)}
}

func (s *memoryStore) key(ns repository.Namespace, id string) string {
	return string(ns) + "/" + id
}

func (s *memoryStore) Save(_ context.Context, ns repository.Namespace, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns == s.failOn {
		return assertErr
	}
	s.saves++
	s.blobs[s.key(ns, id)] = append([]byte{}, data...)
	return nil
}

func (s *memoryStore) Load(_ context.Context, ns repository.Namespace, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[s.key(ns, id)]
	if !ok {
		return nil, repository.ErrBlobNotFound
	}
	return append([]byte{}, data...), nil
}

func (s *memoryStore) Clear(_ context.Context, ns repository.Namespace, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, s.key(ns, id))
	return nil
}

func (s *memoryStore) HealthCheck(context.Context) error { return nil }
func (s *memoryStore) Close() error                      { return nil }

func (s *memoryStore) has(ns repository.Namespace, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[s.key(ns, id)]
	return ok
}

type staticError string

func (e staticError) Error() string { return string(e) }

const assertErr = staticError("injected failure")

// mockTelephony records telephony calls.
type mockTelephony struct {
	mock.Mock
}

func (m *mockTelephony) SetSMS(ctx context.Context, creds models.AccountCredentials, callbackURL string) error {
	return m.Called(ctx, creds, callbackURL).Error(0)
}

func (m *mockTelephony) SendSMS(ctx context.Context, creds models.AccountCredentials, dst, message string) error {
	return m.Called(ctx, creds, dst, message).Error(0)
}

func (m *mockTelephony) GetSMS(ctx context.Context, creds models.AccountCredentials, from, to time.Time) ([]client.InboundSMS, error) {
	args := m.Called(ctx, creds, from, to)
	sms, _ := args.Get(0).([]client.InboundSMS)
	return sms, args.Error(1)
}

func (m *mockTelephony) GetBalance(ctx context.Context, creds models.AccountCredentials) (float64, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(float64), args.Error(1)
}

// mockPush records push deliveries.
type mockPush struct {
	mock.Mock
}

func (m *mockPush) Notify(ctx context.Context, device models.DeviceRegistration) error {
	return m.Called(ctx, device).Error(0)
}

// fakeScheduler fires timers only when advanced.
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *fakeScheduler
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, at: s.now + d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward and runs every timer that came due.
func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired && t.at <= s.now {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

// fired reports whether the i-th scheduled timer has been picked up by Advance.
func (s *fakeScheduler) fired(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return i < len(s.timers) && s.timers[i].fired
}

func (s *fakeScheduler) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func testAccount() models.Account {
	return models.Account{
		Token: "4567-token",
		ID:    "4567-abcdef",
		Credentials: models.AccountCredentials{
			Username: "me@example.com",
			Password: "password1",
			DID:      "5551234567",
		},
	}
}
