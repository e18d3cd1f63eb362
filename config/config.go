package config

import (
	"time"

	"keel/core"

	"github.com/asaskevich/govalidator"
	"github.com/fox-one/pkg/config"
)

// Load load config file
func Load(cfgFile string, cfg *core.Config) error {
	config.AutomaticLoadEnv("KEEL")
	if err := config.LoadYaml(cfgFile, cfg); err != nil {
		return err
	}

	defaults(cfg)

	if _, err := govalidator.ValidateStruct(cfg.Worker); err != nil {
		return err
	}
	if _, err := govalidator.ValidateStruct(cfg.PriceFeed); err != nil {
		return err
	}

	return nil
}

func defaults(cfg *core.Config) {
	if cfg.Worker.PriceInterval <= 0 {
		cfg.Worker.PriceInterval = 10 * time.Second
	}
	if cfg.Worker.KeeperInterval <= 0 {
		cfg.Worker.KeeperInterval = 15 * time.Second
	}
	if cfg.Worker.KeeperBatch <= 0 {
		cfg.Worker.KeeperBatch = 100
	}
}
