// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package config loads and validates the job configuration described in
// spec.md §6, following the teacher's viper + validator construction
// (api/integration-api/config/config.go): defaults are seeded first, env
// vars override them, and the result is rejected at construction time if
// any required field is missing or any unrecognized key was supplied.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Paths groups the job's filesystem layout (spec.md §6 "paths").
type Paths struct {
	OutputDir       string `mapstructure:"output_dir" validate:"required"`
	TempDir         string `mapstructure:"temp_dir" validate:"required"`
	TTSCacheDir     string `mapstructure:"tts_cache_dir" validate:"required"`
	SilenceCacheDir string `mapstructure:"silence_cache_dir" validate:"required"`
	FileSegmentDir  string `mapstructure:"file_segment_dir"`
}

// NotifyConfig configures the optional job-completion email sent by
// internal/notify, grounded on the teacher's own use of AWS SES and
// sendgrid-go for outbound mail (its go.mod pulls both
// aws-sdk-go-v2/service/ses and sendgrid-go; it carries no object-storage
// SDK, so the finalized WAV/SRT stay local rather than being shipped to a
// bucket that nothing in the teacher's stack actually serves).
type NotifyConfig struct {
	Provider         string `mapstructure:"provider"`
	SESRegion        string `mapstructure:"ses_region"`
	SenderAddress    string `mapstructure:"sender_address"`
	RecipientAddress string `mapstructure:"recipient_address"`
}

// JobStoreConfig optionally records job run history in a local sqlite db
// via gorm (SPEC_FULL.md §11).
type JobStoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

// AppConfig is the full recognized configuration surface from spec.md §6.
// Unknown keys are rejected: Load's decoder config sets ErrorUnused.
type AppConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"required"`

	RepeatCount                int     `mapstructure:"repeat_count" validate:"required,min=1"`
	ExtraDelaySec              float64 `mapstructure:"extra_delay_sec"`
	FileSegmentDelayMultiplier float64 `mapstructure:"file_segment_delay_multiplier"`
	CapOriginalPause           bool    `mapstructure:"cap_original_pause"`
	OriginalPauseCapSec        float64 `mapstructure:"original_pause_cap_sec"`

	BatchBreakSec  int     `mapstructure:"batch_break_sec"`
	EdgeStepSec    float64 `mapstructure:"edge_step_sec"`
	EndSilenceSec  float64 `mapstructure:"end_silence_sec"`
	MaxSSMLLength  int     `mapstructure:"max_ssml_length"`

	AmplitudeThreshold float64 `mapstructure:"amplitude_threshold"`
	MinSilenceSec      float64 `mapstructure:"min_silence_sec"`

	TTSRatePerLanguage map[string]string `mapstructure:"tts_rate_per_language"`
	AllowTranslation   bool              `mapstructure:"allow_translation"`

	Paths Paths `mapstructure:"paths" validate:"required"`

	Notify   NotifyConfig   `mapstructure:"notify"`
	JobStore JobStoreConfig `mapstructure:"job_store"`

	SendgridAPIKey string `mapstructure:"sendgrid_api_key"`
	RedisAddr      string `mapstructure:"redis_addr"`
}

// VoicePolicy resolves a voice name for (language, strategy); it is not
// part of the serialized config since it is a callback (spec.md §6).
type VoicePolicy func(lang, strategy string) string

// DefaultVoicePolicy is the reference behavior: one configured voice per
// language regardless of strategy.
func DefaultVoicePolicy(voices map[string]string) VoicePolicy {
	return func(lang, _ string) string {
		if v, ok := voices[lang]; ok {
			return v
		}
		return "default"
	}
}

// InitViper builds the viper instance, seeds defaults, then layers env
// vars and an optional .env file, mirroring the teacher's InitConfig.
func InitViper() (*viper.Viper, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("__"))
	v.AddConfigPath(".")
	v.SetConfigName(".env")
	if path := os.Getenv("LANGTRACK_ENV_PATH"); path != "" {
		v.SetConfigFile(path)
	}
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REPEAT_COUNT", 3)
	v.SetDefault("EXTRA_DELAY_SEC", 0.5)
	v.SetDefault("FILE_SEGMENT_DELAY_MULTIPLIER", 1.0)
	v.SetDefault("CAP_ORIGINAL_PAUSE", false)
	v.SetDefault("ORIGINAL_PAUSE_CAP_SEC", 4.0)
	v.SetDefault("BATCH_BREAK_SEC", 2)
	v.SetDefault("EDGE_STEP_SEC", 0.7)
	v.SetDefault("END_SILENCE_SEC", 5.0)
	v.SetDefault("MAX_SSML_LENGTH", 4800)
	v.SetDefault("AMPLITUDE_THRESHOLD", -40.0)
	v.SetDefault("MIN_SILENCE_SEC", 0.3)
	v.SetDefault("ALLOW_TRANSLATION", true)
	v.SetDefault("NOTIFY__PROVIDER", "none")
	v.SetDefault("PATHS__OUTPUT_DIR", "./output")
	v.SetDefault("PATHS__TEMP_DIR", "./temp")
	v.SetDefault("PATHS__TTS_CACHE_DIR", "./tts_cache")
	v.SetDefault("PATHS__SILENCE_CACHE_DIR", "./silence_cache")
}

// Load unmarshals and validates the application config. Unrecognized keys
// fail construction rather than being silently absorbed (spec.md §9).
func Load(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &cfg,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("building config decoder: %w", err)
	}
	if err := dec.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}
