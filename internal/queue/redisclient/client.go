package redisclient

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Pop when no item arrived before the wait elapsed.
var ErrEmpty = errors.New("redisclient: queue empty")

type Client struct {
	redisdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

// this ping function checks redis connectivity

func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

// Push appends payload to the head of list; Pop takes from the tail, so the
// list drains in FIFO order.
func (c *Client) Push(ctx context.Context, list string, payload []byte) error {
	return c.redisdb.LPush(ctx, list, payload).Err()
}

// Pop blocks up to wait for the oldest item on list.
func (c *Client) Pop(ctx context.Context, list string, wait time.Duration) ([]byte, error) {
	res, err := c.redisdb.BRPop(ctx, wait, list).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, err
	}

	// BRPOP replies [list, value]
	if len(res) != 2 {
		return nil, ErrEmpty
	}
	return []byte(res[1]), nil
}

// DelayedKey is the sorted set holding items scheduled for list, scored by
// due time in unix milliseconds.
func DelayedKey(list string) string {
	return list + ":delayed"
}

// Schedule parks payload until at; PromoteDue moves it onto list afterwards.
func (c *Client) Schedule(ctx context.Context, list string, payload []byte, at time.Time) error {
	return c.redisdb.ZAdd(ctx, DelayedKey(list), redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: payload,
	}).Err()
}

// promoteDue moves up to ARGV[2] members due by ARGV[1] from the delayed set
// onto the list in one step, so two workers never promote the same item.
var promoteDue = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, v in ipairs(due) do
	redis.call('ZREM', KEYS[1], v)
	redis.call('LPUSH', KEYS[2], v)
end
return #due
`)

const promoteBatch = 100

// PromoteDue pushes scheduled items whose time has come onto list and
// reports how many moved.
func (c *Client) PromoteDue(ctx context.Context, list string, now time.Time) (int, error) {
	return promoteDue.Run(ctx, c.redisdb,
		[]string{DelayedKey(list), list},
		now.UnixMilli(), promoteBatch,
	).Int()
}

// this closes the client

func (c *Client) Close() error {
	return c.redisdb.Close()
}
