package sessions

import (
	"context"
	"fmt"

	"github.com/jrsteele09/reminder-bff/internal/config"
)

// NewRepoFromConfig builds the Repo selected by SESSION_STORE.
func NewRepoFromConfig(ctx context.Context, cfg interface {
	config.StoreConfig
	config.SecurityConfig
}) (Repo, error) {
	switch cfg.GetStoreDriver() {
	case config.StoreDriverMemory:
		return NewInMemoryRepo(), nil
	case config.StoreDriverRedis:
		codec, err := NewCodec(cfg.GetSessionSecret())
		if err != nil {
			return nil, err
		}
		client, err := ConnectRedis(ctx, cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisDB())
		if err != nil {
			return nil, err
		}
		return NewRedisRepo(client, codec, cfg.GetRedisPrefix()), nil
	case config.StoreDriverBolt:
		codec, err := NewCodec(cfg.GetSessionSecret())
		if err != nil {
			return nil, err
		}
		return NewBoltRepoFromFile(cfg.GetBoltPath(), codec)
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.GetStoreDriver())
	}
}
