package rabbitmq

// EntitlementsExchange — exchange событий выдачи и отзыва ролей.
const EntitlementsExchange = "entitlements"

// Ключи маршрутизации событий прав доступа.
const (
	RoutingKeyGrant  = "grant"
	RoutingKeyRevoke = "revoke"
)

// QueueConfig связывает очередь с ключом маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetEntitlementQueues возвращает очереди воркера синхронизации ролей.
func GetEntitlementQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "entitlements.grant", RoutingKey: RoutingKeyGrant},
		{QueueName: "entitlements.revoke", RoutingKey: RoutingKeyRevoke},
	}
}
