package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anukritich/AyushSetu/internal/config"
	httpapi "github.com/anukritich/AyushSetu/internal/http"
	"github.com/anukritich/AyushSetu/internal/icd"
	"github.com/anukritich/AyushSetu/internal/mapper"
	"github.com/anukritich/AyushSetu/internal/service"
	"github.com/anukritich/AyushSetu/internal/store"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the terminology search HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address (overrides HTTP_ADDR)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := loadConfig(c)
			if v := c.String("addr"); v != "" {
				cfg.HTTP.Addr = v
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			mappers, err := service.LoadMappers(cfg.WHOCatalogs, log)
			if err != nil {
				return err
			}

			var kv store.KV
			if cfg.Redis.Enabled {
				client := store.NewRedisClient(cfg)
				defer client.Close()
				redisKV := store.NewRedisKV(client)
				pingCtx, cancel := context.WithTimeout(c.Context, 2*time.Second)
				if err := redisKV.Ping(pingCtx); err != nil {
					log.Warn("Redis unavailable, search cache disabled", zap.Error(err))
				} else {
					kv = redisKV
				}
				cancel()
			}

			var searcher service.ICDSearcher
			if cfg.ICDEnabled() {
				searcher = icd.NewClient(cfg.ICD, log)
			} else {
				log.Info("ICD credentials not set, ICD suggestions disabled")
			}

			svc := newTerminologyService(c.Context, cfg, mappers, kv, searcher, log)
			router := httpapi.NewRouter(log)
			router.RegisterHealthRoutes()
			router.RegisterTerminologyRoutes(httpapi.NewTerminologyHandler(svc, log))

			srv := service.NewServer(cfg.HTTP.Addr, router, log)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case <-sigCh:
			case err := <-errCh:
				if err != nil {
					return err
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Stop(shutdownCtx)
		},
	}
}

// newTerminologyService 构建检索服务；缓存里可能残留上一进程基于旧目录的结果，启动时先清掉
func newTerminologyService(ctx context.Context, cfg *config.Config, mappers map[string]*mapper.Mapper,
	kv store.KV, searcher service.ICDSearcher, log *zap.Logger) service.TerminologyService {
	svc := service.NewTerminologyService(mappers, kv, cfg.SearchCacheTTL, searcher, log)
	if kv == nil {
		return svc
	}
	if _, err := svc.InvalidateCache(ctx); err != nil {
		log.Warn("Failed to invalidate search cache", zap.Error(err))
	}
	return svc
}
