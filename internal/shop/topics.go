package shop

const TopicOrderCreated = "storefront.order.created"

// PartitionKey keeps every event of one order in order.
func PartitionKey(id string) []byte { return []byte(id) }
