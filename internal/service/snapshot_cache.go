package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"goldledger/internal/model"
	"goldledger/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const snapshotGenerationKey = "goldledger:snapshot:gen"

// SnapshotCache is a read-through redis cache of lot listings for the
// read-only consumers (balance validation, alerts). Entries may be stale by up
// to ttl; every committed command bumps a generation counter, which orphans
// all earlier entries. With a nil client it reads straight from the repository.
type SnapshotCache struct {
	repo repository.LedgerRepository
	rdb  *redis.Client
	ttl  time.Duration
}

func NewSnapshotCache(repo repository.LedgerRepository, rdb *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SnapshotCache{repo: repo, rdb: rdb, ttl: ttl}
}

func (c *SnapshotCache) Lots(ctx context.Context, filter repository.LotFilter) ([]model.OwnershipLot, error) {
	if c.rdb == nil {
		return c.repo.ListLots(ctx, filter)
	}

	key := c.key(ctx, filter)
	if cached, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var lots []model.OwnershipLot
		if jsonErr := json.Unmarshal(cached, &lots); jsonErr == nil {
			return lots, nil
		}
	}

	lots, err := c.repo.ListLots(ctx, filter)
	if err != nil {
		return nil, err
	}
	if b, jsonErr := json.Marshal(lots); jsonErr == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			log.Debug().Err(err).Msg("snapshot cache: set failed")
		}
	}
	return lots, nil
}

// Invalidate orphans every cached listing.
func (c *SnapshotCache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Incr(ctx, snapshotGenerationKey).Err(); err != nil {
		log.Warn().Err(err).Msg("snapshot cache: invalidate failed")
	}
}

func (c *SnapshotCache) key(ctx context.Context, f repository.LotFilter) string {
	gen, err := c.rdb.Get(ctx, snapshotGenerationKey).Int64()
	if err != nil && err != redis.Nil {
		log.Debug().Err(err).Msg("snapshot cache: generation read failed")
	}
	branch, supplier := "*", "*"
	if f.BranchID != nil {
		branch = f.BranchID.String()
	}
	if f.SupplierID != nil {
		supplier = f.SupplierID.String()
	}
	return fmt.Sprintf("goldledger:snapshot:%d:%s:%s:%s:%t:%t:%t",
		gen, f.ItemKey, branch, supplier, f.IncludeDepleted, f.OnlyWithStock, f.OnlyOwed)
}
