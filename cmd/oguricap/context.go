package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/classify"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/commands"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/config"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/dedupe"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/delivery"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/events"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/logging"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/resolution"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
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

// withStore opens the store for one command invocation.
func (c *commandContext) withStore(fn func(*config.Config, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(cfg, st)
}

// buildRouter assembles the full engine stack over an open store.
func buildRouter(cfg *config.Config, st *store.Store, logger *slog.Logger) (*commands.Router, error) {
	classifier, err := loadClassifier(cfg)
	if err != nil {
		return nil, err
	}
	ev := events.NewService(cfg)
	deliverer := delivery.New(st, ev, cfg, logger)
	engine := resolution.New(st, classifier, deliverer, ev, cfg, logger)
	guard := dedupe.New(dedupe.Options{
		Window:         cfg.Dedupe.Window(),
		EntryTTL:       cfg.Dedupe.EntryTTL(),
		SoftLimit:      cfg.Dedupe.SoftLimit,
		EvictionTarget: cfg.Dedupe.EvictionTarget,
		HardLimit:      cfg.Dedupe.HardLimit,
	})
	return commands.NewRouter(engine, st, guard, logger), nil
}

func loadClassifier(cfg *config.Config) (*classify.Classifier, error) {
	if strings.TrimSpace(cfg.Classifier.RulesPath) == "" {
		return classify.NewDefault(), nil
	}
	rules, err := classify.LoadRulesFile(cfg.Classifier.RulesPath)
	if err != nil {
		return nil, err
	}
	return classify.New(rules), nil
}

func buildLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.NewFromConfig(cfg)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
