package redis

import (
	"fmt"

	"github.com/notihub/gateway/internal/config"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient creates a go-redis client from cfg.Redis.URL, used for both the
// notification cache and the shared FIFO job queue.
func NewClient(cfg *config.Config) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	return goredis.NewClient(opts), nil
}
