package rbac

import (
	"context"
	"encoding/json"
	"fmt"

	"keeper/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

type invalidation struct {
	Origin string `json:"origin"`
	RoleID uint   `json:"role_id"`
}

// RedisNotifier 通过 Redis 频道广播角色变更，各进程收到后重新加载快照
// 忽略本进程发出的消息
type RedisNotifier struct {
	client  *redis.Client
	channel string
	origin  string
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
	}
}

// Publish 实现 Notifier
func (n *RedisNotifier) Publish(ctx context.Context, roleID uint) error {
	payload, err := json.Marshal(invalidation{Origin: n.origin, RoleID: roleID})
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, payload).Err()
}

// Listen 订阅频道，收到其它进程的消息时重新加载 r，直到 ctx 取消
// 订阅确认后返回
func (n *RedisNotifier) Listen(ctx context.Context, r Reloader) error {
	sub := n.client.Subscribe(ctx, n.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", n.channel, err)
	}

	go func() {
		defer sub.Close()
		log := logger.GetLogger()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var inv invalidation
				if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
					log.WithError(err).Warn("discarding malformed role invalidation")
					continue
				}
				if inv.Origin == n.origin {
					continue
				}
				if err := r.Load(ctx); err != nil {
					log.WithError(err).Error("reload role snapshot on invalidation")
					continue
				}
				log.WithField("role_id", inv.RoleID).Info("role snapshot reloaded from peer invalidation")
			}
		}
	}()
	return nil
}
