package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/scy"
)

// scyRecord is the payload stored per key.
type scyRecord struct {
	Value string `json:"value"`
}

// ScyBackend stores one scy secret per key inside dir. cipherKey is a scy key
// URL such as "blowfish://default"; empty stores the payload unencrypted.
type ScyBackend struct {
	dir       string
	cipherKey string
	svc       *scy.Service
}

// NewScyBackend creates dir when missing.
func NewScyBackend(dir, cipherKey string) (*ScyBackend, error) {
	if dir == "" {
		return nil, errors.New("credstore: scy dir is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &ScyBackend{dir: dir, cipherKey: cipherKey, svc: scy.New()}, nil
}

func (b *ScyBackend) pathFor(key string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, key)
	return filepath.Join(b.dir, safe+".sec")
}

func (b *ScyBackend) Get(ctx context.Context, key string) (string, bool, error) {
	path := b.pathFor(key)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	secret, err := b.svc.Load(ctx, scy.NewResource(nil, "file://"+path, b.cipherKey))
	if err != nil {
		return "", false, fmt.Errorf("credstore: scy load %s: %w", key, err)
	}
	var rec scyRecord
	if err := json.Unmarshal([]byte(secret.String()), &rec); err != nil {
		return "", false, fmt.Errorf("credstore: scy decode %s: %w", key, err)
	}
	return rec.Value, true, nil
}

func (b *ScyBackend) Set(ctx context.Context, key, value string) error {
	payload, err := json.Marshal(scyRecord{Value: value})
	if err != nil {
		return err
	}
	res := scy.NewResource(nil, "file://"+b.pathFor(key), b.cipherKey)
	if err := b.svc.Store(ctx, scy.NewSecret(payload, res)); err != nil {
		return fmt.Errorf("credstore: scy store %s: %w", key, err)
	}
	return nil
}

// Delete removes the underlying file; scy has no delete operation.
func (b *ScyBackend) Delete(_ context.Context, key string) error {
	if err := os.Remove(b.pathFor(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
