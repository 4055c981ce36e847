package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	QuantityModeFixed   = "fixed"
	QuantityModePayload = "payload"

	keyQuantityMode  = "projection.subscriptionQuantity.mode"
	keyQuantityFixed = "projection.subscriptionQuantity.fixed"
)

// ProjectionConfig tunes how provider payloads are mapped onto local rows.
type ProjectionConfig struct {
	SubscriptionQuantity QuantityPolicy `mapstructure:"subscriptionQuantity"`
}

type QuantityPolicy struct {
	Mode  string `mapstructure:"mode"`
	Fixed int64  `mapstructure:"fixed"`
}

func DefaultProjectionConfig() ProjectionConfig {
	return ProjectionConfig{
		SubscriptionQuantity: QuantityPolicy{Mode: QuantityModeFixed, Fixed: 1},
	}
}

// Resolve picks the stored quantity given the first subscription item's quantity.
func (p QuantityPolicy) Resolve(itemQuantity *int64) int64 {
	if p.Mode == QuantityModePayload && itemQuantity != nil && *itemQuantity > 0 {
		return *itemQuantity
	}
	return p.Fixed
}

type ProjectionConfigHolder struct {
	current atomic.Value // holds ProjectionConfig
}

func NewProjectionConfigHolder(log *zap.Logger) (*ProjectionConfigHolder, error) {
	return newProjectionConfigHolder(log, "/etc/stripesync", ".")
}

// NewStaticProjectionConfig returns a holder that never reloads.
func NewStaticProjectionConfig(cfg ProjectionConfig) *ProjectionConfigHolder {
	holder := &ProjectionConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func newProjectionConfigHolder(log *zap.Logger, paths ...string) (*ProjectionConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("projection.config")

	v := viper.New()
	v.SetConfigName("projection")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("STRIPESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultProjectionConfig()
	v.SetDefault(keyQuantityMode, defaults.SubscriptionQuantity.Mode)
	v.SetDefault(keyQuantityFixed, defaults.SubscriptionQuantity.Fixed)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
	}

	cfg := normalizeProjectionConfig(readProjectionConfig(v))
	if err := validateProjectionConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ProjectionConfigHolder{}
	holder.current.Store(cfg)

	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := normalizeProjectionConfig(readProjectionConfig(v))
		if err := validateProjectionConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// readProjectionConfig reads leaf keys so STRIPESYNC_* env overrides apply.
func readProjectionConfig(v *viper.Viper) ProjectionConfig {
	return ProjectionConfig{
		SubscriptionQuantity: QuantityPolicy{
			Mode:  v.GetString(keyQuantityMode),
			Fixed: v.GetInt64(keyQuantityFixed),
		},
	}
}

func (h *ProjectionConfigHolder) Get() ProjectionConfig {
	return h.current.Load().(ProjectionConfig)
}

func normalizeProjectionConfig(cfg ProjectionConfig) ProjectionConfig {
	cfg.SubscriptionQuantity.Mode = strings.ToLower(strings.TrimSpace(cfg.SubscriptionQuantity.Mode))
	if cfg.SubscriptionQuantity.Mode == "" {
		cfg.SubscriptionQuantity.Mode = QuantityModeFixed
	}
	return cfg
}

func validateProjectionConfig(cfg ProjectionConfig) error {
	switch cfg.SubscriptionQuantity.Mode {
	case QuantityModeFixed, QuantityModePayload:
	default:
		return fmt.Errorf("projection.subscriptionQuantity.mode %q is not supported", cfg.SubscriptionQuantity.Mode)
	}
	if cfg.SubscriptionQuantity.Fixed < 1 {
		return errors.New("projection.subscriptionQuantity.fixed must be at least 1")
	}
	return nil
}
