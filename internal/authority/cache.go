package authority

/*
Файл cache.go — in-memory cache политик.
В рантайме Authority Engine обращается только к памяти (Hot Path);
PostgreSQL используется для load-through при промахе и для записи.
Инстансы синхронизируются сигналом инвалидации через Redis pub/sub.
*/

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/LaithAlz/me-agent/internal/domain"
	"github.com/LaithAlz/me-agent/internal/infra"
	"github.com/LaithAlz/me-agent/internal/store"
)

type PolicyCache struct {
	mu sync.RWMutex
	// Кэш: user_id -> политика
	policies map[string]domain.AgentPolicy

	store  store.PolicyStore
	rdb    *redis.Client // nil допустим: одиночный инстанс без шины
	logger *zap.Logger
}

func NewPolicyCache(st store.PolicyStore, rdb *redis.Client, logger *zap.Logger) *PolicyCache {
	return &PolicyCache{
		policies: make(map[string]domain.AgentPolicy),
		store:    st,
		rdb:      rdb,
		logger:   logger.Named("policy-cache"),
	}
}

// GetPolicy возвращает политику пользователя. При промахе читает из стора;
// если записи нет — лениво создает дефолтную и персистит ее.
func (c *PolicyCache) GetPolicy(ctx context.Context, userID string) (domain.AgentPolicy, error) {
	c.mu.RLock()
	p, ok := c.policies[userID]
	c.mu.RUnlock()
	if ok {
		return p.Clone(), nil
	}

	rec, err := c.store.Get(ctx, userID)
	if err != nil {
		return domain.AgentPolicy{}, err
	}

	if rec == nil {
		// Ленивый дефолт при первом обращении
		p = domain.DefaultPolicy()
		if err := c.store.Save(ctx, domain.PolicyRecord{
			UserID:    userID,
			Policy:    p,
			UpdatedAt: time.Now().UTC(),
		}); err != nil {
			return domain.AgentPolicy{}, err
		}
	} else {
		p = rec.Policy.Normalize()
	}

	c.mu.Lock()
	c.policies[userID] = p
	c.mu.Unlock()

	return p.Clone(), nil
}

// Save персистит политику, обновляет кэш и рассылает сигнал инвалидации.
func (c *PolicyCache) Save(ctx context.Context, userID string, p domain.AgentPolicy) error {
	p = p.Normalize()
	if err := c.store.Save(ctx, domain.PolicyRecord{
		UserID:    userID,
		Policy:    p,
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	c.mu.Lock()
	c.policies[userID] = p
	c.mu.Unlock()

	if c.rdb != nil {
		if err := c.rdb.Publish(ctx, infra.RedisChanPolicyUpdate, userID).Err(); err != nil {
			// Локальный кэш уже обновлен, остальные догонятся через load-through
			c.logger.Warn("policy invalidation publish failed", zap.Error(err))
		}
	}
	return nil
}

// Invalidate сбрасывает запись: следующий GetPolicy пойдет в стор.
func (c *PolicyCache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.policies, userID)
	c.mu.Unlock()
}

func (c *PolicyCache) reset() {
	c.mu.Lock()
	c.policies = make(map[string]domain.AgentPolicy)
	c.mu.Unlock()
}

// StartListener — "живучая" подписка на сигналы инвалидации.
// Payload сообщения — user_id. Блокирует горутину до отмены ctx.
func (c *PolicyCache) StartListener(ctx context.Context) {
	if c.rdb == nil {
		return
	}

	for {
		pubsub := c.rdb.Subscribe(ctx, infra.RedisChanPolicyUpdate)

		// Проверка успешности подписки
		if _, err := pubsub.Receive(ctx); err != nil {
			c.logger.Error("failed to subscribe", zap.String("chan", infra.RedisChanPolicyUpdate), zap.Error(err))
			pubsub.Close()
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		// Пока были отключены, могли пропустить сигналы — сбрасываем все
		c.reset()

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}
				c.Invalidate(msg.Payload)
			}
		}

		pubsub.Close()
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
