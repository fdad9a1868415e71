package productline

import (
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/quoteshare/internal/config"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const configKey = "product_line_defaults"

// Holder serves the current defaults table and reloads it when the backing
// config file changes.
type Holder struct {
	current atomic.Value // holds Defaults
}

// NewStaticHolder returns a holder that never reloads.
func NewStaticHolder(d Defaults) *Holder {
	h := &Holder{}
	h.current.Store(DefaultTable().merge(d))
	return h
}

// NewHolder builds the defaults table from the built-in values, an optional
// productlines.yml file and the PRODUCT_LINE_DEFAULTS override, in that order.
func NewHolder(cfg config.Config, log *zap.Logger) (*Holder, error) {
	log = log.Named("productline")

	envOverrides, err := ParseDefaults(cfg.ProductLineDefaults)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	if cfg.ProductLineConfigPath != "" {
		v.SetConfigFile(cfg.ProductLineConfigPath)
	} else {
		v.SetConfigName("productlines")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/quoteshare")
		v.AddConfigPath(".")
	}

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfg.ProductLineConfigPath != "" {
			return nil, err
		}
		fileLoaded = false
	}

	table, err := load(v, envOverrides)
	if err != nil {
		return nil, err
	}

	holder := &Holder{}
	holder.current.Store(table)

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := load(v, envOverrides)
			if err != nil {
				log.Warn("invalid product line defaults ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("product line defaults reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func load(v *viper.Viper, envOverrides Defaults) (Defaults, error) {
	fromFile := map[string]string{}
	for table, line := range v.GetStringMapString(configKey) {
		fromFile[strings.ToLower(table)] = line
	}
	table := DefaultTable().merge(fromFile).merge(envOverrides)
	if err := table.validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// Get returns a copy of the current defaults table.
func (h *Holder) Get() Defaults {
	return h.current.Load().(Defaults).clone()
}

// For returns the default product line for table.
func (h *Holder) For(table string) string {
	return h.current.Load().(Defaults).For(table)
}
