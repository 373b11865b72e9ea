package health

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-redis/redis/v8"
)

// ListenerCheck reports whether a TCP listener (the management/control
// SSH server, or the REST HTTP server) is still accepting connections,
// by dialing its own advertised address.
type ListenerCheck struct {
	CheckName string
	Addr      string
}

func (c *ListenerCheck) Name() string { return c.CheckName }

func (c *ListenerCheck) Run(ctx context.Context) Result {
	start := time.Now()
	res := Result{Check: c.Name(), Timestamp: start}

	d := net.Dialer{Timeout: 2 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", c.Addr)
	res.Duration = time.Since(start)
	if err != nil {
		res.Status = StatusCritical
		res.Message = fmt.Sprintf("dialing %s: %v", c.Addr, err)
		return res
	}
	conn.Close()
	res.Status = StatusOK
	res.Message = "accepting connections"
	return res
}

// RedisCheck reports whether the pub/sub broker services publish
// cross-process events through is reachable.
type RedisCheck struct {
	Client *redis.Client
}

func (c *RedisCheck) Name() string { return "redis" }

func (c *RedisCheck) Run(ctx context.Context) Result {
	start := time.Now()
	res := Result{Check: c.Name(), Timestamp: start}

	if err := c.Client.Ping(ctx).Err(); err != nil {
		res.Status = StatusCritical
		res.Message = fmt.Sprintf("ping: %v", err)
	} else {
		res.Status = StatusOK
		res.Message = "reachable"
	}
	res.Duration = time.Since(start)
	return res
}

// SQLiteCheck reports whether the persisted-state database is open and
// responsive.
type SQLiteCheck struct {
	DB *sql.DB
}

func (c *SQLiteCheck) Name() string { return "sqlite" }

func (c *SQLiteCheck) Run(ctx context.Context) Result {
	start := time.Now()
	res := Result{Check: c.Name(), Timestamp: start}

	if err := c.DB.PingContext(ctx); err != nil {
		res.Status = StatusCritical
		res.Message = fmt.Sprintf("ping: %v", err)
	} else {
		res.Status = StatusOK
		res.Message = "open"
	}
	res.Duration = time.Since(start)
	return res
}
