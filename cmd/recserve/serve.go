package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rushteam/recserve/artifact"
	"github.com/rushteam/recserve/catalog"
	"github.com/rushteam/recserve/config"
	"github.com/rushteam/recserve/filter"
	"github.com/rushteam/recserve/model"
	"github.com/rushteam/recserve/profile"
	"github.com/rushteam/recserve/ranking"
	"github.com/rushteam/recserve/recommend"
	"github.com/rushteam/recserve/retrieval"
	"github.com/rushteam/recserve/server"
)

var cfgFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the artifact bundle and serve recommendations over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&cfgFile, "config", "c", "recserve.yaml", "config file path")
	rootCmd.AddCommand(serveCmd)
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr)
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Log)

	// 启动加载是唯一允许失败的阶段：任何产物问题都在这里拒绝服务。
	start := time.Now()
	bundle, err := artifact.Open(cfg.Artifact.Path)
	if err != nil {
		return err
	}

	vectors, err := bundle.ItemVectors()
	if err != nil {
		return err
	}
	meta, err := bundle.ItemMetadata()
	if err != nil {
		return err
	}
	users, err := bundle.Users()
	if err != nil {
		return err
	}
	towerRaw, rankerRaw, err := bundle.ModelWeights()
	if err != nil {
		return err
	}
	if err := bundle.Close(); err != nil {
		logger.Warn().Err(err).Msg("close artifact bundle")
	}

	store, err := catalog.New(cfg.Artifact.Dimension, vectors, meta)
	if err != nil {
		return err
	}
	tower, err := model.NewTower(towerRaw, cfg.Artifact.Dimension)
	if err != nil {
		return err
	}
	ranker, err := model.NewMLP(rankerRaw)
	if err != nil {
		return err
	}

	var source profile.AttributeSource
	switch cfg.Profile.Source {
	case "feast":
		source, err = profile.NewFeastSource(cfg.Profile.Feast.Host, cfg.Profile.Feast.Port, cfg.Profile.Feast.Project)
		if err != nil {
			return fmt.Errorf("connect feast: %w", err)
		}
	default:
		source, err = profile.NewTableSource(users)
		if err != nil {
			return err
		}
	}

	var resolverOpts []profile.ResolverOption
	if cfg.Cache.RedisAddr != "" {
		cache, err := profile.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisDB,
			time.Duration(cfg.Cache.TTLSeconds)*time.Second)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		resolverOpts = append(resolverOpts, profile.WithVectorCache(cache))
		logger.Info().Str("addr", cfg.Cache.RedisAddr).Msg("user vector cache enabled")
	}
	resolver := profile.NewResolver(source, tower, resolverOpts...)

	var retrievalOpts []retrieval.Option
	if cfg.Recommend.Shards > 0 {
		retrievalOpts = append(retrievalOpts, retrieval.WithShards(cfg.Recommend.Shards))
	}
	retrievalEngine := retrieval.New(store, retrievalOpts...)

	rankingEngine, err := ranking.New(store, ranker)
	if err != nil {
		return err
	}

	var serviceOpts []recommend.ServiceOption
	if cfg.Recommend.Filter != "" {
		candidateFilter, err := filter.New(cfg.Recommend.Filter)
		if err != nil {
			return fmt.Errorf("compile filter expression: %w", err)
		}
		serviceOpts = append(serviceOpts, recommend.WithCandidateFilter(candidateFilter))
		logger.Info().Str("expr", cfg.Recommend.Filter).Msg("candidate filter enabled")
	}
	svc := recommend.NewService(store, resolver, retrievalEngine, rankingEngine, serviceOpts...)

	logger.Info().
		Int("movies", store.Len()).
		Int("dimension", store.Dim()).
		Int("users", resolver.UserCount()).
		Dur("elapsed", time.Since(start)).
		Msg("artifacts loaded")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Server.Addr, store, resolver, svc, logger)
	logger.Info().Str("addr", cfg.Server.Addr).Msg("listening")
	return srv.ListenAndServe(ctx)
}
