package core

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

func secondsOr(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Second
}

// NewRedisClient 集群模式下返回 ClusterClient，否则返回单机 Client
func (r RedisConfig) NewRedisClient() redis.UniversalClient {
	if r.Cluster {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        r.ClusterAddrs,
			Password:     r.ClusterPasswd,
			PoolSize:     r.PoolSize,
			MinIdleConns: r.MinIdleConns,
			MaxRetries:   r.MaxRetries,
			DialTimeout:  secondsOr(r.DialTimeout, 5),
			ReadTimeout:  secondsOr(r.ReadTimeout, 3),
			WriteTimeout: secondsOr(r.WriteTimeout, 3),
		})
	}
	return redis.NewClient(&redis.Options{
		Addr:         r.Addr,
		Password:     r.Password,
		DB:           r.DB,
		PoolSize:     r.PoolSize,
		MinIdleConns: r.MinIdleConns,
		MaxRetries:   r.MaxRetries,
		DialTimeout:  secondsOr(r.DialTimeout, 5),
		ReadTimeout:  secondsOr(r.ReadTimeout, 3),
		WriteTimeout: secondsOr(r.WriteTimeout, 3),
	})
}

// AsynqConnOpt asynq 的 client 与 server 共用同一份连接参数
func (r RedisConfig) AsynqConnOpt() asynq.RedisConnOpt {
	if r.Cluster {
		return asynq.RedisClusterClientOpt{
			Addrs:    r.ClusterAddrs,
			Password: r.ClusterPasswd,
		}
	}
	return asynq.RedisClientOpt{
		Network:  "tcp",
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
	}
}
