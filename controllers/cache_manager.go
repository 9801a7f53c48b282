package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/gonzalo-olmedo/comicstore/models"
	aws_pkg "github.com/gonzalo-olmedo/comicstore/pkg/aws"
	"github.com/gonzalo-olmedo/comicstore/services"
)

const (
	ProductCachePrefix     = "comicstore:product:v:"
	ProductListCachePrefix = "comicstore:products:v:"
	CategoryListCacheKey   = "comicstore:categories:v:"
	CacheVersionKey        = "comicstore:catalog:version"

	DefaultCacheTTL = 10 * time.Minute
)

// CacheManager caches catalog reads in Redis. Every key embeds a version
// counter, so a single INCR invalidates every cached entry. Callers take the
// version from the lookup, before reading the database, and write back under
// that version: a read that raced with a write lands under a retired version
// and is never served. A nil manager or one without a client behaves as a
// permanent miss.
type CacheManager struct {
	redis   *redis.Client
	ttl     time.Duration
	metrics services.MetricsRecorder
	logger  *zap.Logger
}

func NewCacheManager(client *redis.Client, ttl time.Duration, metrics services.MetricsRecorder, logger *zap.Logger) *CacheManager {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CacheManager{
		redis:   client,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

func (cm *CacheManager) enabled() bool {
	return cm != nil && cm.redis != nil
}

// ProductCacheKey is the detail key of a product at a cache version.
func ProductCacheKey(version int64, productID string) string {
	return fmt.Sprintf("%s%d:%s", ProductCachePrefix, version, productID)
}

// lookup reads key under the current version. The returned version is zero
// when nothing may be written back.
func (cm *CacheManager) lookup(ctx context.Context, cache string, key func(version int64) string, dest interface{}) (int64, bool) {
	if !cm.enabled() {
		return 0, false
	}
	version, err := cm.getCacheVersion(ctx)
	if err != nil {
		cm.recordLookup(cache, false)
		return 0, false
	}
	hit := cm.getJSON(ctx, key(version), dest)
	cm.recordLookup(cache, hit)
	return version, hit
}

func (cm *CacheManager) storeAsync(version int64, key string, value interface{}) {
	if !cm.enabled() || version <= 0 {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		cm.setJSON(bgCtx, key, value)
	}()
}

// GetProductList retrieves a cached product list page
func (cm *CacheManager) GetProductList(ctx context.Context, page, perPage int, filters *ProductFilters) (map[string]interface{}, int64, bool) {
	var response map[string]interface{}
	version, hit := cm.lookup(ctx, "product_list", func(v int64) string {
		return cm.listCacheKey(v, page, perPage, filters)
	}, &response)
	return response, version, hit
}

// SetProductListAsync caches a product list page in the background
func (cm *CacheManager) SetProductListAsync(version int64, page, perPage int, filters *ProductFilters, response map[string]interface{}) {
	cm.storeAsync(version, cm.listCacheKey(version, page, perPage, filters), response)
}

func (cm *CacheManager) GetProduct(ctx context.Context, productID string) (*models.Product, int64, bool) {
	var product models.Product
	version, hit := cm.lookup(ctx, "product", func(v int64) string {
		return ProductCacheKey(v, productID)
	}, &product)
	if !hit {
		return nil, version, false
	}
	return &product, version, true
}

// SetProductAsync caches a single product in the background
func (cm *CacheManager) SetProductAsync(version int64, productID string, product *models.Product) {
	cm.storeAsync(version, ProductCacheKey(version, productID), product)
}

func (cm *CacheManager) GetCategories(ctx context.Context) ([]models.Category, int64, bool) {
	var categories []models.Category
	version, hit := cm.lookup(ctx, "category_list", func(v int64) string {
		return fmt.Sprintf("%s%d", CategoryListCacheKey, v)
	}, &categories)
	return categories, version, hit
}

func (cm *CacheManager) SetCategoriesAsync(version int64, categories []models.Category) {
	cm.storeAsync(version, fmt.Sprintf("%s%d", CategoryListCacheKey, version), categories)
}

// Invalidate invalidates all catalog caches by bumping the version
func (cm *CacheManager) Invalidate(ctx context.Context) error {
	if !cm.enabled() {
		return nil
	}
	newVersion, err := cm.redis.Incr(ctx, CacheVersionKey).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	cm.logger.Debug("Catalog cache invalidated", zap.Int64("new_version", newVersion))
	return nil
}

// InvalidateProduct retires the product's detail entry along with every list.
func (cm *CacheManager) InvalidateProduct(ctx context.Context, productID string) {
	if err := cm.Invalidate(ctx); err != nil {
		cm.logger.Error("Failed to invalidate catalog cache", zap.Error(err), zap.String("product_id", productID))
	}
}

// getCacheVersion retrieves the current cache version with retry logic
func (cm *CacheManager) getCacheVersion(ctx context.Context) (int64, error) {
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		ver, err := cm.redis.Get(ctx, CacheVersionKey).Int64()
		if err == nil && ver > 0 {
			return ver, nil
		}

		if err == redis.Nil {
			// SETNX so a concurrent Invalidate is never overwritten
			if err := cm.redis.SetNX(ctx, CacheVersionKey, 1, 0).Err(); err == nil {
				continue
			}
		}

		if i < maxRetries-1 {
			time.Sleep(50 * time.Millisecond)
		}
	}

	return 0, fmt.Errorf("failed to get cache version after %d retries", maxRetries)
}

func (cm *CacheManager) getJSON(ctx context.Context, key string, dest interface{}) bool {
	cached, err := cm.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			cm.logger.Debug("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(cached, dest); err != nil {
		cm.logger.Warn("Failed to unmarshal cached value", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (cm *CacheManager) setJSON(ctx context.Context, key string, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		cm.logger.Warn("Failed to marshal value for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := cm.redis.Set(ctx, key, payload, cm.ttl).Err(); err != nil {
		cm.logger.Warn("Failed to write cache", zap.String("key", key), zap.Error(err))
	}
}

// listCacheKey creates a unique cache key for a product list page
func (cm *CacheManager) listCacheKey(version int64, page, perPage int, filters *ProductFilters) string {
	category, inStock := "", ""
	if filters.CategoryID != nil {
		category = filters.CategoryID.String()
	}
	if filters.InStock != nil {
		inStock = fmt.Sprintf("%t", *filters.InStock)
	}
	return fmt.Sprintf("%s%d:p:%d:l:%d:c:%s:s:%s:stock:%s",
		ProductListCachePrefix, version, page, perPage, category, filters.Search, inStock)
}

func (cm *CacheManager) recordLookup(cache string, hit bool) {
	if cm.metrics == nil {
		return
	}
	metric := aws_pkg.MetricCacheMisses
	if hit {
		metric = aws_pkg.MetricCacheHits
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cm.metrics.RecordCount(ctx, metric, map[string]string{"Cache": cache}); err != nil {
			cm.logger.Debug("Failed to record cache metric", zap.Error(err))
		}
	}()
}
