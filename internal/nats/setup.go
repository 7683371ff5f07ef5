package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// SetupKV creates the engine's KV buckets.
func SetupKV(ctx context.Context, js jetstream.JetStream) error {
	buckets := []string{
		BucketSchedules,
		BucketPending,
		BucketContent,
	}

	for _, name := range buckets {
		cfg := jetstream.KeyValueConfig{
			Bucket:  name,
			Storage: jetstream.FileStorage,
		}
		if _, err := js.CreateOrUpdateKeyValue(ctx, cfg); err != nil {
			return fmt.Errorf("creating KV bucket %s: %w", name, err)
		}
	}

	return nil
}
