package cache

import (
	"context"
	"strings"

	perrors "github.com/matzehuels/circlepack/pkg/errors"
)

// Open returns the shared cache backend named by url.
// redis:// and rediss:// select [RedisCache]; mongodb:// and mongodb+srv://
// select [MongoCache].
func Open(ctx context.Context, url string) (Cache, error) {
	if err := perrors.ValidateCacheURL(url); err != nil {
		return nil, err
	}
	var (
		c   Cache
		err error
	)
	if strings.HasPrefix(url, "redis") {
		c, err = NewRedisCache(ctx, url)
	} else {
		c, err = NewMongoCache(ctx, url)
	}
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeNetwork, err, "open cache")
	}
	return c, nil
}
