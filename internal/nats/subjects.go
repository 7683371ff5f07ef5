package nats

import "fmt"

// KV bucket names. The pending bucket is the due index: it holds one entry
// per pending schedule keyed by id, valued with the scheduled instant, and is
// maintained by every transition into or out of the pending status.
const (
	BucketSchedules = "sched-schedules"
	BucketPending   = "sched-pending"
	BucketContent   = "sched-content"
)

// ContentKey returns the KV key for a content item.
// Example: news.a1b2c3
func ContentKey(contentType, contentID string) string {
	return fmt.Sprintf("%s.%s", contentType, contentID)
}
