package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript атомарно удаляет ключ, только если токен совпадает
// Без проверки токена просроченная блокировка могла бы снять чужую
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// Manager менеджер именованных короткоживущих блокировок на Redis
// SET NX PX + токен владельца при освобождении
type Manager struct {
	client *redis.Client
	prefix string
}

// NewManager создает менеджер блокировок поверх Redis клиента
func NewManager(client *redis.Client, prefix string) *Manager {
	if prefix == "" {
		prefix = "lock"
	}
	return &Manager{client: client, prefix: prefix}
}

// Acquire пытается захватить блокировку key на время ttl
// Возвращает токен владельца для освобождения, либо ErrNotAcquired
func (m *Manager) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()

	ok, err := m.client.SetNX(ctx, m.prefix+":"+key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("%w: acquire %s: %v", ErrInternal, key, err)
	}
	if !ok {
		return "", ErrNotAcquired
	}

	return token, nil
}

// Release освобождает блокировку, если токен все еще принадлежит вызывающему
func (m *Manager) Release(ctx context.Context, key string, token string) error {
	if err := m.client.Eval(ctx, releaseScript, []string{m.prefix + ":" + key}, token).Err(); err != nil {
		return fmt.Errorf("%w: release %s: %v", ErrInternal, key, err)
	}
	return nil
}
