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

// DocumentConfig carries the tunable defaults used when documents are issued.
type DocumentConfig struct {
	DefaultCurrency  string                        `mapstructure:"defaultCurrency"`
	DefaultTaxRate   float64                       `mapstructure:"defaultTaxRate"`
	PaymentTermsDays int                           `mapstructure:"paymentTermsDays"`
	Types            map[string]DocumentTypeConfig `mapstructure:"types"`
}

// DocumentTypeConfig controls numbering for a single document type.
type DocumentTypeConfig struct {
	Tag    string `mapstructure:"tag"`
	Format string `mapstructure:"format"`
}

const DefaultNumberFormat = "{PREFIX}/{YEAR}/{TYPE}/{NUMBER:4}"

func DefaultDocumentConfig() DocumentConfig {
	return DocumentConfig{
		DefaultCurrency:  "INR",
		DefaultTaxRate:   18,
		PaymentTermsDays: 30,
		Types: map[string]DocumentTypeConfig{
			"invoice":      {Tag: "INV", Format: DefaultNumberFormat},
			"quotation":    {Tag: "QUO", Format: DefaultNumberFormat},
			"proposal":     {Tag: "PRP", Format: DefaultNumberFormat},
			"offer_letter": {Tag: "OFL", Format: DefaultNumberFormat},
		},
	}
}

// TypeConfig returns the numbering settings for documentType, falling back to
// an upper-cased type tag and the default format.
func (c DocumentConfig) TypeConfig(documentType string) DocumentTypeConfig {
	key := strings.ToLower(strings.TrimSpace(documentType))
	if tc, ok := c.Types[key]; ok {
		if strings.TrimSpace(tc.Format) == "" {
			tc.Format = DefaultNumberFormat
		}
		if strings.TrimSpace(tc.Tag) == "" {
			tc.Tag = strings.ToUpper(key)
		}
		return tc
	}
	return DocumentTypeConfig{Tag: strings.ToUpper(key), Format: DefaultNumberFormat}
}

type DocumentConfigHolder struct {
	current atomic.Value // holds DocumentConfig
}

// NewStaticDocumentConfigHolder returns a holder that never reloads.
func NewStaticDocumentConfigHolder(cfg DocumentConfig) *DocumentConfigHolder {
	holder := &DocumentConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewDocumentConfigHolder(log *zap.Logger) (*DocumentConfigHolder, error) {
	log = log.Named("config.documents")
	v := viper.New()

	v.SetConfigName("documents")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/docflow")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DOCFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultDocumentConfig()
	v.SetDefault("documents.defaultCurrency", defaults.DefaultCurrency)
	v.SetDefault("documents.defaultTaxRate", defaults.DefaultTaxRate)
	v.SetDefault("documents.paymentTermsDays", defaults.PaymentTermsDays)
	v.SetDefault("documents.types", defaults.Types)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg DocumentConfig
	if err := v.UnmarshalKey("documents", &cfg); err != nil {
		return nil, err
	}
	if err := validateDocumentConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticDocumentConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated DocumentConfig
		if err := v.UnmarshalKey("documents", &updated); err != nil {
			log.Warn("document config reload failed", zap.Error(err))
			return
		}
		if err := validateDocumentConfig(updated); err != nil {
			log.Warn("invalid document config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("document config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *DocumentConfigHolder) Get() DocumentConfig {
	return h.current.Load().(DocumentConfig)
}

func validateDocumentConfig(cfg DocumentConfig) error {
	if strings.TrimSpace(cfg.DefaultCurrency) == "" {
		return errors.New("documents.defaultCurrency cannot be empty")
	}
	if cfg.DefaultTaxRate < 0 || cfg.DefaultTaxRate > 100 {
		return fmt.Errorf("documents.defaultTaxRate out of range: %v", cfg.DefaultTaxRate)
	}
	if cfg.PaymentTermsDays < 0 {
		return errors.New("documents.paymentTermsDays cannot be negative")
	}
	for name, tc := range cfg.Types {
		if format := strings.TrimSpace(tc.Format); format != "" && !strings.Contains(format, "{NUMBER") {
			return fmt.Errorf("documents.types.%s.format must contain a {NUMBER} placeholder", name)
		}
	}
	return nil
}
