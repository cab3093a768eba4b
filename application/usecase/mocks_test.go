package usecase

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jobtrack/jobtrack/application/port/outbound"
	"github.com/jobtrack/jobtrack/domain/entity"
	"github.com/jobtrack/jobtrack/infrastructure/service/logger"
	"github.com/jobtrack/jobtrack/infrastructure/service/password"
	"github.com/jobtrack/jobtrack/infrastructure/service/token"
)

// memoryStore is an in-memory outbound.KeyValueStore with real TTL
// semantics. The clock is advanceable so expiry can be tested without
// sleeping.
type memoryStore struct {
	mu      sync.Mutex
	offset  time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]memoryEntry)}
}

func (s *memoryStore) now() time.Time {
	return time.Now().Add(s.offset)
}

func (s *memoryStore) advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset += d
}

func (s *memoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return "", outbound.ErrKeyNotFound
	}
	return entry.value, nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *memoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return false, nil
	}
	return true, nil
}

// memoryUserRepo is an in-memory outbound.UserRepository.
type memoryUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*entity.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{nextID: 1, users: make(map[int64]*entity.User)}
}

func (r *memoryUserRepo) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, outbound.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, outbound.ErrUserNotFound
}

func (r *memoryUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryUserRepo) Create(ctx context.Context, user *entity.User) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	copied.ID = r.nextID
	r.nextID++
	r.users[copied.ID] = &copied
	result := copied
	return &result, nil
}

func (r *memoryUserRepo) UpdatePassword(ctx context.Context, id int64, hashedPassword string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return outbound.ErrUserNotFound
	}
	user.Password = hashedPassword
	user.UpdatedAt = time.Now()
	return nil
}

func (r *memoryUserRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return outbound.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

// memoryMailer records sent mail instead of dispatching it.
type memoryMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func newMemoryMailer() *memoryMailer {
	return &memoryMailer{}
}

func (m *memoryMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *memoryMailer) last() (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}, false
	}
	return m.sent[len(m.sent)-1], true
}

func (m *memoryMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func newTestCodec() *token.JWTCodec {
	codec, err := token.NewJWTCodec(token.Config{
		Secret:     "test-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 14 * 24 * time.Hour,
	})
	if err != nil {
		panic(err)
	}
	return codec
}

// newShortLivedCodec issues tokens that expire almost immediately, for
// exercising the expired-token paths.
func newShortLivedCodec() *token.JWTCodec {
	codec, err := token.NewJWTCodec(token.Config{
		Secret:     "test-secret",
		AccessTTL:  time.Millisecond,
		RefreshTTL: time.Millisecond,
	})
	if err != nil {
		panic(err)
	}
	return codec
}

func newTestPasswordService() *password.BcryptPasswordService {
	return password.NewBcryptPasswordService(bcrypt.MinCost)
}

func nopLogger() logger.Logger {
	return logger.NewNopLogger()
}
