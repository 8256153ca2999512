package orders

import "strconv"

const TopicOrderSettled = "order.settled"

// Partition key = order id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID int64) []byte { return []byte(strconv.FormatInt(orderID, 10)) }
