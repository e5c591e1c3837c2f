package rabbitmq

// QueueConfig очередь и ключ маршрутизации для привязки к Exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetBillingQueues возвращает очереди потребителей событий биллинга.
func GetBillingQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "billing.usage", RoutingKey: "credit.*"},
		{QueueName: "billing.payments", RoutingKey: "payment.*"},
		{QueueName: "billing.entitlements", RoutingKey: "premium.*"},
	}
}
