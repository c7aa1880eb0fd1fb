package bootstrap

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/target/swift-ingestion/config"
)

// Redis topologies selected by REDIS_USE_CLUSTER / REDIS_USE_SENTINEL.
const (
	redisModeDirect   = "direct"
	redisModeSentinel = "sentinel"
	redisModeCluster  = "cluster"
)

// redisPlan is the resolved client options for one topology. Exactly one of
// direct, failover or cluster is set.
type redisPlan struct {
	mode     string
	describe string // credential-free address for logs

	direct   *redis.Options
	failover *redis.FailoverOptions
	cluster  *redis.ClusterOptions
}

//nolint:ireturn // see ConnectRedis.
func (p redisPlan) client() redis.UniversalClient {
	switch {
	case p.cluster != nil:
		return redis.NewClusterClient(p.cluster)
	case p.failover != nil:
		return redis.NewFailoverClient(p.failover)
	default:
		return redis.NewClient(p.direct)
	}
}

// planRedis resolves cfg into client options without touching the network.
// Cluster wins over sentinel when both flags are set.
func planRedis(cfg config.RedisConfig) (redisPlan, error) {
	switch {
	case cfg.UseCluster:
		return planCluster(cfg)
	case cfg.UseSentinel:
		return planSentinel(cfg)
	default:
		return planDirect(cfg)
	}
}

func planDirect(cfg config.RedisConfig) (redisPlan, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return redisPlan{}, errors.New("redis: REDIS_URI is required")
	}
	plan := redisPlan{mode: redisModeDirect}
	if isRedisURL(uri) {
		opt, err := redis.ParseURL(uri)
		if err != nil {
			return redisPlan{}, fmt.Errorf("parse redis url: %w", err)
		}
		plan.direct = opt
		plan.describe = opt.Addr
		return plan, nil
	}
	plan.direct = &redis.Options{Addr: uri, Password: cfg.Password, DB: cfg.DB}
	plan.describe = redactRedisAddr(uri)
	return plan, nil
}

func planSentinel(cfg config.RedisConfig) (redisPlan, error) {
	nodes := trimNonEmpty(cfg.SentinelNodes)
	if len(nodes) == 0 {
		return redisPlan{}, errors.New("redis: REDIS_SENTINEL_NODES is required with REDIS_USE_SENTINEL")
	}
	master := strings.TrimSpace(cfg.SentinelMasterName)
	if master == "" {
		return redisPlan{}, errors.New("redis: REDIS_SENTINEL_MASTER_NAME is required with REDIS_USE_SENTINEL")
	}
	return redisPlan{
		mode:     redisModeSentinel,
		describe: master + "@" + strings.Join(nodes, ","),
		failover: &redis.FailoverOptions{
			MasterName:       master,
			SentinelAddrs:    nodes,
			Password:         cfg.Password,
			SentinelPassword: cfg.SentinelPassword,
			DB:               cfg.DB,
		},
	}, nil
}

// planCluster uses REDIS_CLUSTER_NODES, falling back to REDIS_URI as a single seed node.
// Cluster mode has no logical databases, so REDIS_DB is ignored.
func planCluster(cfg config.RedisConfig) (redisPlan, error) {
	opts := &redis.ClusterOptions{
		Addrs:    trimNonEmpty(cfg.ClusterNodes),
		Password: cfg.Password,
	}
	if len(opts.Addrs) == 0 {
		seed := strings.TrimSpace(cfg.URI)
		switch {
		case seed == "":
		case isRedisURL(seed):
			opt, err := redis.ParseURL(seed)
			if err != nil {
				return redisPlan{}, fmt.Errorf("parse redis cluster url: %w", err)
			}
			opts.Addrs = []string{opt.Addr}
			opts.Username = opt.Username
			opts.TLSConfig = opt.TLSConfig
			if opt.Password != "" {
				opts.Password = opt.Password
			}
		default:
			opts.Addrs = []string{seed}
		}
	}
	if len(opts.Addrs) == 0 {
		return redisPlan{}, errors.New("redis: REDIS_CLUSTER_NODES or REDIS_URI is required with REDIS_USE_CLUSTER")
	}
	return redisPlan{
		mode:     redisModeCluster,
		describe: strings.Join(opts.Addrs, ","),
		cluster:  opts,
	}, nil
}

func trimNonEmpty(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isRedisURL(value string) bool {
	return strings.HasPrefix(value, "redis://") || strings.HasPrefix(value, "rediss://")
}

// redactRedisAddr strips userinfo from addresses written as user:pass@host:port.
func redactRedisAddr(addr string) string {
	if u, err := url.Parse(addr); err == nil && u.User != nil && u.Host != "" {
		return u.Host
	}
	if i := strings.LastIndex(addr, "@"); i > -1 {
		return addr[i+1:]
	}
	return addr
}
