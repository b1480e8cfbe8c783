package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/MrEthical07/thunderauth"
	"github.com/MrEthical07/thunderauth/credstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// Options holds the global flags plus one field per sub-command. The struct
// tags are read by github.com/jessevdk/go-flags.
type Options struct {
	Config     string        `short:"f" long:"config" env:"THUNDER_CONFIG" description:"YAML config path"`
	BaseURL    string        `long:"base-url" env:"THUNDER_BASE_URL" description:"auth API base URL (overrides config)"`
	Store      string        `long:"store" env:"THUNDER_STORE" choice:"vault" choice:"settings" choice:"redis" choice:"scy" choice:"memory" default:"vault" description:"where tokens are kept"`
	StateDir   string        `long:"state-dir" env:"THUNDER_STATE_DIR" description:"directory for local credential files"`
	Passphrase string        `long:"passphrase" env:"THUNDER_PASSPHRASE" description:"vault passphrase"`
	RedisAddr  string        `long:"redis-addr" env:"REDIS_ADDR" description:"redis address; empty starts an in-process miniredis"`
	ScyKey     string        `long:"scy-key" env:"THUNDER_SCY_KEY" description:"scy cipher key reference"`
	Timeout    time.Duration `long:"timeout" description:"overall command timeout" default:"1m"`
	Verbose    bool          `short:"v" long:"verbose" description:"log warnings to stderr"`

	Register       RegisterCmd       `command:"register" description:"Create an account"`
	Login          LoginCmd          `command:"login" description:"Sign in and store credentials"`
	TwoFactor      TwoFactorCmd      `command:"two-factor" description:"Complete a login with a two-factor code"`
	ForgotPassword ForgotPasswordCmd `command:"forgot-password" description:"Request a password reset mail"`
	ResetPassword  ResetPasswordCmd  `command:"reset-password" description:"Set a new password with a reset token"`
	ConfirmEmail   ConfirmEmailCmd   `command:"confirm-email" description:"Confirm an email address"`
	Refresh        RefreshCmd        `command:"refresh" description:"Exchange the stored refresh token"`
	Logout         LogoutCmd         `command:"logout" description:"Forget stored credentials"`
	Status         StatusCmd         `command:"status" description:"Show stored credential state"`
	Call           CallCmd           `command:"call" description:"Send an arbitrary request with refresh-and-retry"`
	Metrics        MetricsCmd        `command:"metrics" description:"Probe an endpoint periodically and serve client metrics"`
}

var opts Options

// session is everything a command needs for one invocation.
type session struct {
	ctx     context.Context
	client  *thunderauth.Client
	cleanup []func()
}

func (s *session) Close() {
	s.client.Close()
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

// open loads the configuration, opens the selected credential backends and
// builds a client. Callers must Close the session.
func (o *Options) open(configure func(*thunderauth.Builder)) (*session, error) {
	cfg := thunderauth.DefaultConfig()
	if o.Config != "" {
		loaded, err := thunderauth.LoadConfigFile(o.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if o.BaseURL != "" {
		cfg.API.BaseURL = o.BaseURL
	}

	s := &session{}
	ctx, cancel := context.WithTimeout(context.Background(), o.Timeout)
	s.ctx = ctx
	s.cleanup = append(s.cleanup, cancel)

	secrets, settings, err := o.backends(s)
	if err != nil {
		for _, fn := range s.cleanup {
			fn()
		}
		return nil, err
	}

	logger := log.New(io.Discard, "", 0)
	if o.Verbose {
		logger.SetOutput(os.Stderr)
	}
	b := thunderauth.New().
		WithConfig(cfg).
		WithSecretBackend(secrets).
		WithSettingsBackend(settings).
		WithLogger(logger)
	if configure != nil {
		configure(b)
	}
	client, err := b.Build()
	if err != nil {
		for _, fn := range s.cleanup {
			fn()
		}
		return nil, err
	}
	s.client = client
	return s, nil
}

func (o *Options) stateDir() (string, error) {
	if o.StateDir != "" {
		return o.StateDir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, "thunder"), nil
}

func (o *Options) backends(s *session) (secrets, settings credstore.Backend, err error) {
	if o.Store == "memory" {
		return credstore.NewMemoryBackend(), nil, nil
	}

	dir, err := o.stateDir()
	if err != nil {
		return nil, nil, err
	}
	settingsFile, err := credstore.OpenSettingsFile(filepath.Join(dir, "settings.yaml"))
	if err != nil {
		return nil, nil, err
	}

	switch o.Store {
	case "settings":
		return settingsFile, nil, nil
	case "vault":
		if o.Passphrase == "" {
			return nil, nil, errors.New("vault store requires --passphrase or THUNDER_PASSPHRASE")
		}
		vault, err := credstore.OpenVault(filepath.Join(dir, "credentials.vault"), []byte(o.Passphrase), credstore.DefaultVaultParams())
		if err != nil {
			return nil, nil, err
		}
		return vault, settingsFile, nil
	case "scy":
		backend, err := credstore.NewScyBackend(filepath.Join(dir, "secrets"), o.ScyKey)
		if err != nil {
			return nil, nil, err
		}
		return backend, settingsFile, nil
	case "redis":
		rdb, err := o.redisClient(s)
		if err != nil {
			return nil, nil, err
		}
		return credstore.NewRedisBackend(rdb, ""), settingsFile, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", o.Store)
	}
}

func (o *Options) redisClient(s *session) (redis.UniversalClient, error) {
	addr := o.RedisAddr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		s.cleanup = append(s.cleanup, mr.Close)
		addr = mr.Addr()
		if o.Verbose {
			log.Printf("using in-process miniredis at %s; tokens last for this run only", addr)
		}
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{addr},
	})
	s.cleanup = append(s.cleanup, func() { _ = client.Close() })
	if err := client.Ping(s.ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return client, nil
}
