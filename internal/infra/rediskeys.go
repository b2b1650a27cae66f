package infra

const (
	// RedisNamespace — базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "meagent"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanPolicyUpdate — сигнал об изменении политики пользователя.
	// Payload — userID. Все инстансы, подписанные на канал, сбрасывают
	// свой in-memory кэш для этого пользователя.
	RedisChanPolicyUpdate = RedisNamespace + ":policy-update"
)
