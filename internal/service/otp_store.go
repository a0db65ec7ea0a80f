package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quickchat/internal/domain"
)

// OTPStore persiste registros OTP con expiracion pasiva a nivel de almacenamiento.
type OTPStore interface {
	Save(ctx context.Context, rec domain.OTPRecord, ttl time.Duration) error
	List(ctx context.Context, email string) ([]domain.OTPRecord, error)
	Delete(ctx context.Context, email, code string) error
	DeleteAll(ctx context.Context, email string) error
}

type memoryOTPEntry struct {
	rec      domain.OTPRecord
	deadline time.Time
}

// MemoryOTPStore guarda los registros en memoria; Run barre los vencidos.
type MemoryOTPStore struct {
	mu    sync.Mutex
	items map[string][]memoryOTPEntry
	now   func() time.Time
}

func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{
		items: make(map[string][]memoryOTPEntry),
		now:   time.Now,
	}
}

func (s *MemoryOTPStore) Save(_ context.Context, rec domain.OTPRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Email] = append(s.items[rec.Email], memoryOTPEntry{
		rec:      rec,
		deadline: s.now().Add(ttl),
	})
	return nil
}

func (s *MemoryOTPStore) List(_ context.Context, email string) ([]domain.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	out := []domain.OTPRecord{}
	for _, e := range s.items[email] {
		if now.Before(e.deadline) {
			out = append(out, e.rec)
		}
	}
	return out, nil
}

func (s *MemoryOTPStore) Delete(_ context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.items[email]
	kept := entries[:0]
	for _, e := range entries {
		if e.rec.Code != code {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(s.items, email)
		return nil
	}
	s.items[email] = kept
	return nil
}

func (s *MemoryOTPStore) DeleteAll(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, email)
	return nil
}

// Sweep elimina fisicamente los registros vencidos y devuelve cuantos borro.
func (s *MemoryOTPStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for email, entries := range s.items {
		kept := entries[:0]
		for _, e := range entries {
			if now.Before(e.deadline) {
				kept = append(kept, e)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(s.items, email)
		} else {
			s.items[email] = kept
		}
	}
	return removed
}

// Run ejecuta Sweep periodicamente hasta que ctx se cancele.
func (s *MemoryOTPStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// redisOTPStore usa un hash por email (campo = codigo, valor = issuedAt);
// el TTL de la clave da la expiracion pasiva.
type redisOTPStore struct {
	client *redis.Client
	prefix string
}

func NewRedisOTPStore(client *redis.Client) OTPStore {
	if client == nil {
		return nil
	}
	return &redisOTPStore{
		client: client,
		prefix: "otp:",
	}
}

func (s *redisOTPStore) key(email string) string {
	return s.prefix + strings.ToLower(strings.TrimSpace(email))
}

func (s *redisOTPStore) Save(ctx context.Context, rec domain.OTPRecord, ttl time.Duration) error {
	key := s.key(rec.Email)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, rec.Code, strconv.FormatInt(rec.IssuedAt.UnixNano(), 10))
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func (s *redisOTPStore) List(ctx context.Context, email string) ([]domain.OTPRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.key(email)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.OTPRecord, 0, len(fields))
	for code, raw := range fields {
		nanos, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, domain.OTPRecord{
			Email:    email,
			Code:     code,
			IssuedAt: time.Unix(0, nanos).UTC(),
		})
	}
	return out, nil
}

func (s *redisOTPStore) Delete(ctx context.Context, email, code string) error {
	return s.client.HDel(ctx, s.key(email), code).Err()
}

func (s *redisOTPStore) DeleteAll(ctx context.Context, email string) error {
	return s.client.Del(ctx, s.key(email)).Err()
}
