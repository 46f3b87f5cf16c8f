package main

import (
	"strings"
	"sync"
	"time"

	"lectern/internal/analysis"
	"lectern/internal/config"
	"lectern/internal/extraction"
	"lectern/internal/logging"
	"lectern/internal/notify"
	"lectern/internal/pipeline"
	"lectern/internal/queue"
	"lectern/internal/quota"
	"lectern/internal/resultcache"
	"lectern/internal/snapshots"
	"lectern/internal/storage"
	"lectern/internal/transcribe"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// cliEnv bundles the stores a command needs. The CLI talks to the same
// SQLite database as the daemon; commands open it for the duration of a
// single invocation.
type cliEnv struct {
	cfg           *config.Config
	db            *storage.DB
	jobs          *queue.Store
	cache         *resultcache.Store
	notifications *notify.Store
	orchestrator  *pipeline.Orchestrator
}

func (c *commandContext) withEnv(fn func(*cliEnv) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	db, err := storage.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	logger := logging.NewNop()
	jobs := queue.NewStore(db)
	cache := resultcache.NewStore(db, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	notifications := notify.NewStore(db, notify.NewRegistry(), cfg.Notifications)
	monitor := quota.NewMonitor(db, cfg.Quota, logger)
	transcriber, err := transcribe.NewClientFromConfig(cfg, monitor, logger)
	if err != nil {
		return err
	}
	analyzer := analysis.NewAnalyzer(analysis.NewLLMClient(cfg.LLM))

	env := &cliEnv{
		cfg:           cfg,
		db:            db,
		jobs:          jobs,
		cache:         cache,
		notifications: notifications,
		orchestrator: pipeline.NewOrchestrator(
			cfg,
			jobs,
			cache,
			snapshots.NewFromConfig(cfg, logger),
			notifications,
			extraction.NewExtractor(cfg),
			transcriber,
			analyzer,
			logger,
		),
	}
	return fn(env)
}
