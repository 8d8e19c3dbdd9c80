package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/member-portal/internal/domain"
)

// Short timeouts: the limiter sits on the request path and fails open.
const (
	dialTimeout = 2 * time.Second
	ioTimeout   = 500 * time.Millisecond
	poolSize    = 20
	pingTimeout = 2 * time.Second
)

// Client is the shared Redis connection used by the rate limiter.
type Client struct {
	rdb  *goredis.Client
	addr string
}

func New(addr, password string, db int) *Client {
	return &Client{
		addr: addr,
		rdb: goredis.NewClient(&goredis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			DialTimeout:  dialTimeout,
			ReadTimeout:  ioTimeout,
			WriteTimeout: ioTimeout,
			PoolSize:     poolSize,
		}),
	}
}

// Addr is the configured host:port, safe to log.
func (c *Client) Addr() string { return c.addr }

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return domain.WithMeta(
			domain.Wrap(domain.KindInfrastructure, "redis_unavailable", "redis unavailable", err),
			map[string]string{"addr": c.addr},
		)
	}
	return nil
}

func (c *Client) Close() error { return c.rdb.Close() }
