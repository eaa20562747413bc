package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"newsdesk/internal/model"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	publishedKey = "posts:published"

	// Unpublished posts score above any real publish time so they list
	// first, newest created on top.
	draftScore = float64(1 << 52)

	gcInterval = 5 * time.Minute
)

func postKey(id string) string   { return "post:" + id }
func slugKey(slug string) string { return "post:slug:" + slug }

// HybridStore keeps post metadata and ordering in Redis and post bodies in Badger.
type HybridStore struct {
	rdb    *redis.Client
	db     *badger.DB
	policy Policy
	logger *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// NewHybridStore connects to Redis and opens Badger.
// Pass badgerPath="" to run without bodies (CLI tools that only touch metadata).
func NewHybridStore(redisAddr, badgerPath string, policy Policy, logger *zap.Logger) (*HybridStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:                  redisAddr,
		ContextTimeoutEnabled: true,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	var db *badger.DB
	if badgerPath != "" {
		opts := badger.DefaultOptions(badgerPath)
		opts.Logger = nil
		var err error
		db, err = badger.Open(opts)
		if err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to open badger: %w", err)
		}
	}

	s := &HybridStore{rdb: rdb, db: db, policy: policy, logger: logger, stop: make(chan struct{})}
	if db != nil {
		go s.collectGarbage()
	}
	return s, nil
}

// collectGarbage runs Badger value log GC until the store is closed.
func (s *HybridStore) collectGarbage() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(0.7)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("Badger value log GC failed", zap.Error(err))
			}
		}
	}
}

// Close stops background work and closes both databases.
func (s *HybridStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	var errs []error
	if s.rdb != nil {
		errs = append(errs, s.rdb.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}

// Save writes metadata to Redis and the body to Badger.
func (s *HybridStore) Save(ctx context.Context, post *model.Post) error {
	if err := s.policy.Check(ctx, OpInsert); err != nil {
		return err
	}
	if post.ID == "" || post.Slug == "" {
		return fmt.Errorf("post id and slug are required")
	}

	owner, err := s.rdb.Get(ctx, slugKey(post.Slug)).Result()
	switch {
	case err == nil && owner != post.ID:
		return fmt.Errorf("slug %q is already used by post %s", post.Slug, owner)
	case err != nil && err != redis.Nil:
		return transient("look up slug", err)
	}

	previous, err := s.meta(ctx, post.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	meta := *post
	meta.Content = ""
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	score := draftScore + float64(post.CreatedAt.Unix())
	if post.PublishedAt != nil {
		score = float64(post.PublishedAt.Unix())
	}

	pipe := s.rdb.TxPipeline()
	if previous != nil && previous.Slug != post.Slug {
		pipe.Del(ctx, slugKey(previous.Slug))
	}
	pipe.Set(ctx, postKey(post.ID), data, 0)
	pipe.Set(ctx, slugKey(post.Slug), post.ID, 0)
	pipe.ZAdd(ctx, publishedKey, redis.Z{Score: score, Member: post.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return transient("save post", err)
	}

	if post.Content != "" {
		if s.db == nil {
			return fmt.Errorf("cannot save content: badgerdb is not initialized")
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte(post.ID), []byte(post.Content))
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// List reads the publish-time index newest first and resolves metadata.
// Bodies are not loaded.
func (s *HybridStore) List(ctx context.Context) ([]model.Post, error) {
	if err := s.policy.Check(ctx, OpSelect); err != nil {
		return nil, err
	}

	ids, err := s.rdb.ZRevRange(ctx, publishedKey, 0, -1).Result()
	if err != nil {
		return nil, transient("list posts", err)
	}
	if len(ids) == 0 {
		return []model.Post{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = postKey(id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, transient("list posts", err)
	}

	posts := make([]model.Post, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var p model.Post
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			s.logger.Warn("Skipping unreadable post", zap.String("id", ids[i]), zap.Error(err))
			continue
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// Get combines metadata from Redis with the body from Badger.
func (s *HybridStore) Get(ctx context.Context, id string) (*model.Post, error) {
	if err := s.policy.Check(ctx, OpSelect); err != nil {
		return nil, err
	}
	post, err := s.meta(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.db != nil {
		err = s.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(id))
			if err != nil {
				return err
			}
			return item.Value(func(val []byte) error {
				post.Content = string(val)
				return nil
			})
		})
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return nil, err
		}
	}
	return post, nil
}

// GetBySlug resolves the slug index and then loads the post.
func (s *HybridStore) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	id, err := s.rdb.Get(ctx, slugKey(slug)).Result()
	if err == redis.Nil {
		return nil, newError(ErrNotFound, fmt.Sprintf("no post with slug %q", slug), nil)
	} else if err != nil {
		return nil, transient("look up slug", err)
	}
	return s.Get(ctx, id)
}

// Delete removes the post from every index and drops its body.
func (s *HybridStore) Delete(ctx context.Context, id string) error {
	if err := s.policy.Check(ctx, OpDelete); err != nil {
		return err
	}
	post, err := s.meta(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, postKey(id))
	pipe.Del(ctx, slugKey(post.Slug))
	pipe.ZRem(ctx, publishedKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return transient("delete post", err)
	}

	if s.db != nil {
		err = s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete([]byte(id))
		})
		if err != nil {
			s.logger.Warn("Failed to drop post body", zap.String("id", id), zap.Error(err))
		}
	}
	return nil
}

func (s *HybridStore) meta(ctx context.Context, id string) (*model.Post, error) {
	val, err := s.rdb.Get(ctx, postKey(id)).Bytes()
	if err == redis.Nil {
		return nil, newError(ErrNotFound, fmt.Sprintf("post %s not found", id), nil)
	} else if err != nil {
		return nil, transient("read post", err)
	}

	var post model.Post
	if err := json.Unmarshal(val, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func transient(op string, err error) error {
	return &Error{Kind: ErrTransient, Err: fmt.Errorf("%s: %w", op, err)}
}
