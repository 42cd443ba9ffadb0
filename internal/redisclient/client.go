package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"retail-inventory/internal/models"

	"github.com/go-redis/redis/v8"
)

const invoiceSeqKey = "invoice:seq"

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// NextInvoiceSeq increments the shared invoice counter. INCR is atomic across
// every process using the same Redis, so values never repeat.
func (c *Client) NextInvoiceSeq(ctx context.Context) (int64, error) {
	seq, err := c.rdb.Incr(ctx, invoiceSeqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("invoice counter: %w: %v", models.ErrStorage, err)
	}
	return seq, nil
}

// GetReceipt returns the receipt stored under an idempotency key, or nil
func (c *Client) GetReceipt(ctx context.Context, key string) (*models.SaleReceipt, error) {
	data, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var receipt models.SaleReceipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("decode cached receipt: %w", err)
	}
	return &receipt, nil
}

// SaveReceipt stores a receipt under an idempotency key with TTL
func (c *Client) SaveReceipt(ctx context.Context, key string, receipt *models.SaleReceipt, ttl time.Duration) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), data, ttl).Err()
}

// MarkAlerted records that a low-stock alert went out for a product. It
// returns false when one was already recorded within ttl.
func (c *Client) MarkAlerted(ctx context.Context, ownerID, productID int64, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("alert:lowstock:%d:%d", ownerID, productID), "1", ttl).Result()
}

// ClearAlert forgets a low-stock alert so the next drop alerts again
func (c *Client) ClearAlert(ctx context.Context, ownerID, productID int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf("alert:lowstock:%d:%d", ownerID, productID)).Err()
}

// AcquireLock acquires a distributed lock. It returns false when another
// holder has it.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
