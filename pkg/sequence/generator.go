package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("sequence",
	fx.Provide(ProvideGenerator),
)

// Generator mints human-facing campaign codes of the form CAMP-<year>-<nnn>.
// Codes are allocated from store-backed counters, never from process memory,
// so concurrent instances and restarts cannot hand out the same code.
type Generator interface {
	NextCampaignCode(ctx context.Context) (string, error)
}

type Params struct {
	fx.In

	Redis *redis.Client `optional:"true"`
	DB    *gorm.DB
}

// ProvideGenerator prefers the Redis counter and falls back to the database
// counter table when Redis is not configured.
func ProvideGenerator(p Params) (Generator, error) {
	if p.Redis != nil {
		return NewRedisGenerator(p.Redis), nil
	}
	return NewGormGenerator(p.DB)
}

// =========================================================
// Redis counter
// =========================================================

type RedisGenerator struct {
	rdb *redis.Client
}

func NewRedisGenerator(rdb *redis.Client) *RedisGenerator {
	return &RedisGenerator{rdb: rdb}
}

func (g *RedisGenerator) NextCampaignCode(ctx context.Context) (string, error) {
	year := time.Now().UTC().Year()
	key := fmt.Sprintf("seq:campaign:%d", year)

	seq, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return "", err
	}

	return formatCampaignCode(year, seq), nil
}

// =========================================================
// Database counter table
// =========================================================

// Counter is one named sequence row. Exported so callers can migrate it.
type Counter struct {
	Name      string    `gorm:"column:name;primaryKey;type:varchar(64)"`
	Value     int64     `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Counter) TableName() string {
	return "sequence_counters"
}

type GormGenerator struct {
	db *gorm.DB
}

func NewGormGenerator(db *gorm.DB) (*GormGenerator, error) {
	if err := db.AutoMigrate(&Counter{}); err != nil {
		return nil, err
	}
	return &GormGenerator{db: db}, nil
}

func (g *GormGenerator) NextCampaignCode(ctx context.Context) (string, error) {
	year := time.Now().UTC().Year()
	name := fmt.Sprintf("campaign:%d", year)

	var next int64
	// Guarded increment: the UPDATE only succeeds when the row still holds the
	// value we read, so two concurrent allocations cannot share a number.
	for attempt := 0; attempt < 5; attempt++ {
		err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var counter Counter
			if err := tx.Where("name = ?", name).First(&counter).Error; err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				counter = Counter{Name: name, Value: 1}
				if err := tx.Create(&counter).Error; err != nil {
					return err
				}
				next = 1
				return nil
			}

			res := tx.Model(&Counter{}).
				Where("name = ? AND value = ?", name, counter.Value).
				Update("value", counter.Value+1)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errCounterContended
			}
			next = counter.Value + 1
			return nil
		})
		if err == nil {
			return formatCampaignCode(year, next), nil
		}
		if !errors.Is(err, errCounterContended) {
			return "", err
		}
	}

	return "", fmt.Errorf("sequence %s: too much contention", name)
}

var errCounterContended = errors.New("sequence counter contended")

func formatCampaignCode(year int, seq int64) string {
	return fmt.Sprintf("CAMP-%d-%03d", year, seq)
}
