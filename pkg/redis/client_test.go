package redis

import (
	"testing"

	"github.com/kimanidev/dukapos-backend/pkg/config"
)

func TestIdempotencyKeyNamespacing(t *testing.T) {
	c := &Client{}
	key := c.IdempotencyKey("sale-sync", "3f0a")
	if key != "dukapos:idempotency:sale-sync:3f0a" {
		t.Fatalf("unexpected key %q", key)
	}

	key = c.IdempotencyKey("", "3f0a")
	if key != "dukapos:idempotency:3f0a" {
		t.Fatalf("empty scope should be skipped, got %q", key)
	}
}

func TestOptionsFromConfigRequiresEndpoint(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}

	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 2, PoolSize: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 2 || opts.PoolSize != 5 {
		t.Fatalf("options not mapped: %+v", opts)
	}
}
