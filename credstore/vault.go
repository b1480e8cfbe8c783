package credstore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const vaultVersion = 1

// Limits applied to parameters read back from a vault file.
const (
	vaultMinSalt     = 16
	vaultMaxTime     = 64
	vaultMaxMemoryKB = 1 << 20 // 1 GiB
)

var vaultAAD = []byte("thunderauth-vault-v1")

var (
	// ErrVaultLocked is returned when the vault cannot be decrypted with the
	// given passphrase.
	ErrVaultLocked = errors.New("credstore: vault passphrase mismatch or data tampered")
	// ErrVaultCorrupt is returned when the vault file cannot be parsed.
	ErrVaultCorrupt = errors.New("credstore: vault file corrupt")
)

// VaultParams are the argon2id parameters used to derive the vault key.
type VaultParams struct {
	Time     uint32
	MemoryKB uint32
	Threads  uint8
}

// DefaultVaultParams follows the argon2id baseline used for password hashing.
func DefaultVaultParams() VaultParams {
	return VaultParams{Time: 2, MemoryKB: 19 * 1024, Threads: 1}
}

type vaultFile struct {
	Version  int    `json:"v"`
	Time     uint32 `json:"t"`
	MemoryKB uint32 `json:"m"`
	Threads  uint8  `json:"p"`
	Salt     []byte `json:"salt"`
	Nonce    []byte `json:"nonce"`
	Data     []byte `json:"data"`
}

// VaultBackend is a single encrypted file holding every key. The key is derived
// from a passphrase with argon2id and entries are sealed with
// XChaCha20-Poly1305. Each write replaces the file atomically.
type VaultBackend struct {
	mu     sync.Mutex
	path   string
	params VaultParams
	salt   []byte
	key    []byte
	values map[string]string
}

// OpenVault opens or creates the vault at path.
func OpenVault(path string, passphrase []byte, params VaultParams) (*VaultBackend, error) {
	if path == "" {
		return nil, errors.New("credstore: vault path is required")
	}
	if len(passphrase) == 0 {
		return nil, errors.New("credstore: vault passphrase is required")
	}
	if params.Time == 0 || params.MemoryKB == 0 || params.Threads == 0 {
		params = DefaultVaultParams()
	}

	v := &VaultBackend{path: path, params: params, values: make(map[string]string)}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		v.salt = make([]byte, 16)
		if _, err := io.ReadFull(rand.Reader, v.salt); err != nil {
			return nil, err
		}
		v.key = deriveVaultKey(passphrase, v.salt, params)
		return v, nil
	case err != nil:
		return nil, fmt.Errorf("credstore: read vault: %w", err)
	}

	var f vaultFile
	if err := json.Unmarshal(raw, &f); err != nil || f.Version != vaultVersion {
		return nil, ErrVaultCorrupt
	}
	v.params = VaultParams{Time: f.Time, MemoryKB: f.MemoryKB, Threads: f.Threads}
	if !v.params.valid() || len(f.Salt) < vaultMinSalt {
		return nil, ErrVaultCorrupt
	}
	v.salt = f.Salt
	v.key = deriveVaultKey(passphrase, f.Salt, v.params)

	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return nil, err
	}
	if len(f.Nonce) != aead.NonceSize() {
		return nil, ErrVaultCorrupt
	}
	plain, err := aead.Open(nil, f.Nonce, f.Data, vaultAAD)
	if err != nil {
		return nil, ErrVaultLocked
	}
	if err := json.Unmarshal(plain, &v.values); err != nil {
		return nil, ErrVaultCorrupt
	}
	if v.values == nil {
		v.values = make(map[string]string)
	}
	return v, nil
}

func (p VaultParams) valid() bool {
	return p.Time >= 1 && p.Time <= vaultMaxTime &&
		p.MemoryKB >= 8*uint32(p.Threads) && p.MemoryKB <= vaultMaxMemoryKB &&
		p.Threads >= 1
}

func deriveVaultKey(passphrase, salt []byte, p VaultParams) []byte {
	return argon2.IDKey(passphrase, salt, p.Time, p.MemoryKB, p.Threads, chacha20poly1305.KeySize)
}

func (v *VaultBackend) Get(_ context.Context, key string) (string, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	val, ok := v.values[key]
	return val, ok, nil
}

func (v *VaultBackend) Set(_ context.Context, key, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	prev, had := v.values[key]
	v.values[key] = value
	if err := v.flush(); err != nil {
		if had {
			v.values[key] = prev
		} else {
			delete(v.values, key)
		}
		return err
	}
	return nil
}

func (v *VaultBackend) Delete(_ context.Context, key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	prev, had := v.values[key]
	if !had {
		return nil
	}
	delete(v.values, key)
	if err := v.flush(); err != nil {
		v.values[key] = prev
		return err
	}
	return nil
}

func (v *VaultBackend) flush() error {
	plain, err := json.Marshal(v.values)
	if err != nil {
		return err
	}
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return err
	}
	out, err := json.Marshal(vaultFile{
		Version:  vaultVersion,
		Time:     v.params.Time,
		MemoryKB: v.params.MemoryKB,
		Threads:  v.params.Threads,
		Salt:     v.salt,
		Nonce:    nonce,
		Data:     aead.Seal(nil, nonce, plain, vaultAAD),
	})
	if err != nil {
		return err
	}
	return writeFileAtomic(v.path, out)
}

// writeFileAtomic writes data to a temp file beside path and renames it over
// path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("credstore: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("credstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("credstore: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("credstore: replace %s: %w", path, err)
	}
	return nil
}
