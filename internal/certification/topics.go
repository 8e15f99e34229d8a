package certification

const (
	TopicOrderCreated  = "cert.order.created"
	TopicStageAdvanced = "cert.order.stage.advanced"
	TopicOrderFinished = "cert.order.finished"
)

// Partition key = order_id so all events of one order keep their ordering.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
