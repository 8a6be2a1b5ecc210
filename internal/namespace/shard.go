package namespace

import "lukechampine.com/blake3"

// ShardKey returns the routing key for workerID: the lowercase hex of
// the first byte of blake3(workerID). Sharding reuses the ticket
// package's hash primitive rather than a second algorithm.
func ShardKey(workerID string) string {
	sum := blake3.Sum256([]byte(workerID))
	const hexDigits = "0123456789abcdef"
	b := sum[0]
	return string([]byte{hexDigits[b>>4], hexDigits[b&0xf]})
}
