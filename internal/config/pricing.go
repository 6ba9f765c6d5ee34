package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PricingConfig holds tunable pricing defaults. Values apply to tiers and
// quotes that do not carry their own currency.
type PricingConfig struct {
	DefaultCurrency string `mapstructure:"defaultCurrency"`
	RoundingScale   int32  `mapstructure:"roundingScale"`
	MaxLineQuantity int64  `mapstructure:"maxLineQuantity"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		DefaultCurrency: "EUR",
		RoundingScale:   2,
		MaxLineQuantity: 100_000,
	}
}

// PricingConfigHolder serves the current pricing config and hot-reloads it
// when the backing file changes.
type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig
}

func NewPricingConfigHolder() (*PricingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/workrate/config") // Volume-mounted config
	v.AddConfigPath("/etc/workrate")            // System config
	v.AddConfigPath(".")                        // Current directory (dev mode)

	v.SetEnvPrefix("WORKRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPricingConfig()
	v.SetDefault("pricing.defaultCurrency", defaults.DefaultCurrency)
	v.SetDefault("pricing.roundingScale", defaults.RoundingScale)
	v.SetDefault("pricing.maxLineQuantity", defaults.MaxLineQuantity)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg PricingConfig
	if err := v.UnmarshalKey("pricing", &cfg); err != nil {
		return nil, err
	}
	if err := validatePricingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingConfig
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Printf("[pricing-config] reload failed: %v", err)
			return
		}
		if err := validatePricingConfig(updated); err != nil {
			log.Printf("[pricing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pricing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPricingConfigHolder wraps a fixed config with no file watching.
func NewStaticPricingConfigHolder(cfg PricingConfig) *PricingConfigHolder {
	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *PricingConfigHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

func validatePricingConfig(cfg PricingConfig) error {
	if strings.TrimSpace(cfg.DefaultCurrency) == "" {
		return errors.New("pricing.defaultCurrency cannot be empty")
	}
	if cfg.RoundingScale < 0 || cfg.RoundingScale > 6 {
		return errors.New("pricing.roundingScale must be between 0 and 6")
	}
	if cfg.MaxLineQuantity <= 0 {
		return errors.New("pricing.maxLineQuantity must be positive")
	}
	return nil
}
