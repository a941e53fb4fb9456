package kafka

// Topic definitions for Kafka event streaming
const (
	// Ingestion
	TopicTrades = "optix.trades"

	// Outputs
	TopicAlerts = "optix.alerts"
)
