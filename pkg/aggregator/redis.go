package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/dpbroker/dpb/pkg/service"
	"github.com/dpbroker/dpb/pkg/util"
)

// RedisPublisher fans a Service's events out over a Redis pub/sub channel
// so other aggregator processes watching the same service (e.g. a
// secondary management connection) see its transitions without polling.
type RedisPublisher struct {
	client  *redis.Client
	network string
}

// NewRedisPublisher builds a Publisher that publishes to
// "dpb:<network>:service:<id>".
func NewRedisPublisher(client *redis.Client, network string) *RedisPublisher {
	return &RedisPublisher{client: client, network: network}
}

func (p *RedisPublisher) channel(serviceID int64) string {
	return fmt.Sprintf("dpb:%s:service:%d", p.network, serviceID)
}

// Publish implements service.Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, event service.Event) error {
	payload, err := json.Marshal(struct {
		ServiceID int64  `json:"service_id"`
		State     string `json:"state"`
		Err       string `json:"error,omitempty"`
	}{
		ServiceID: event.ServiceID,
		State:     event.State.String(),
		Err:       errString(event.Err),
	})
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel(event.ServiceID), payload).Err(); err != nil {
		util.Warnf("redis publish for service %d failed: %v", event.ServiceID, err)
		return err
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// LabelLeaseCache leases trunk label ranges across aggregator processes
// sharing a Redis instance, so two planner runs on two processes never
// hand out the same label concurrently. A lease is a short-lived SET NX
// key; the holder must renew it while the label stays mapped and release
// it (DEL) once the mapping is torn down.
type LabelLeaseCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLabelLeaseCache builds a LabelLeaseCache with the given lease TTL.
func NewLabelLeaseCache(client *redis.Client, ttl time.Duration) *LabelLeaseCache {
	return &LabelLeaseCache{client: client, ttl: ttl}
}

func (c *LabelLeaseCache) key(trunkName string, label int) string {
	return fmt.Sprintf("dpb:trunk:%s:label:%d", trunkName, label)
}

// Acquire attempts to lease a label on a trunk, returning false if
// another process already holds it.
func (c *LabelLeaseCache) Acquire(ctx context.Context, trunkName string, label int, owner string) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.key(trunkName, label), owner, c.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Renew extends an already-held lease.
func (c *LabelLeaseCache) Renew(ctx context.Context, trunkName string, label int) error {
	return c.client.Expire(ctx, c.key(trunkName, label), c.ttl).Err()
}

// Release drops a held lease.
func (c *LabelLeaseCache) Release(ctx context.Context, trunkName string, label int) error {
	return c.client.Del(ctx, c.key(trunkName, label)).Err()
}
