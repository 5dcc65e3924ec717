// Command feedwatch wires the sync core against a Redis-backed store: it
// loads the first feed page, prints the trending tags, then follows the
// change stream for the top post until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aidansussillo24/fitspowithaifunctionality/internal/cache"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/config"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/feed"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/models"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/observability"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/remote"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/remote/redisstore"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/stream"
	"github.com/aidansussillo24/fitspowithaifunctionality/internal/trending"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger("info").Error("config load failed", "error", err)
		os.Exit(1)
	}
	log := observability.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := redisstore.Open(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Error("redis connect failed", "url", cfg.RedisURL, "error", err)
		os.Exit(1)
	}

	viewerID := os.Getenv("VIEWER_ID")
	entities := cache.New(cache.Options{ProfileCacheSize: cfg.ProfileCacheSize, Logger: log})
	paginator := feed.New(store, entities, viewerID,
		feed.WithPageSize(cfg.FeedPageSize), feed.WithLogger(log))

	posts, err := paginator.NextPage(ctx)
	if err != nil {
		log.Error("feed load failed", "error", err)
		os.Exit(1)
	}
	log.Info("feed page loaded", "posts", len(posts), "exhausted", paginator.Exhausted())

	log.Info("trending tags", "tags", trending.TopTags(posts, time.Now()))

	router := stream.New(store, entities, viewerID, log)
	if len(posts) > 0 {
		top := posts[0]
		unsub := entities.Subscribe(models.KindPost, top.ID, func(v any) {
			if post, ok := v.(models.Post); ok {
				log.Info("post updated", "id", post.ID, "likes", post.LikeCount)
			}
		})
		defer unsub()

		sub, err := router.Attach(ctx, remote.Scope{Collection: remote.CollectionPosts, Parent: top.ID}, func(err error) {
			log.Error("counter stream dropped", "post_id", top.ID, "error", err)
		})
		if err != nil {
			log.Error("counter stream attach failed", "error", err)
			os.Exit(1)
		}
		defer sub.Detach()
		log.Info("watching post counters", "post_id", top.ID)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")
}
