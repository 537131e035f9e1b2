package encryption

import (
	"fmt"
	"time"

	"github.com/yourusername/hdvault/internal/hdkeystore"
	"github.com/yourusername/hdvault/internal/utils"
)

const (
	maxFailuresPerWindow = 5
	failureWindow        = time.Minute
)

// Service is the production hdkeystore.EncryptionCollaborator: a single
// passphrase protects every chain's seed, each under its own salt and
// nonce. While locked, password is nil and every Encrypt/DecryptSeed call
// fails with hdkeystore.ErrLocked.
type Service struct {
	crypted  bool
	password []byte
	limiter  *slidingWindowLimiter
}

var _ hdkeystore.EncryptionCollaborator = (*Service)(nil)

// NewService returns a Service with no passphrase set (Plaintext-equivalent:
// IsCrypted is false until SetPassphrase is called).
func NewService() *Service {
	return &Service{limiter: newSlidingWindowLimiter(maxFailuresPerWindow, failureWindow)}
}

// SetPassphrase establishes the encryption passphrase and unlocks the
// service. Calling it again rotates the passphrase for future EncryptSeed
// calls; it does not re-encrypt seeds already encrypted under the old one.
func (s *Service) SetPassphrase(password string) {
	s.crypted = true
	s.password = []byte(password)
}

// SetPassphraseValidated is SetPassphrase with an OWASP-style strength
// check (utils.ValidatePassword) in front of it; callers onboarding a new
// passphrase rather than unlocking an existing vault should use this
// instead of SetPassphrase directly.
func (s *Service) SetPassphraseValidated(password string) error {
	if err := utils.ValidatePassword(password); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrInvalidPassword, err)
	}
	s.SetPassphrase(password)
	return nil
}

// Lock discards the in-memory passphrase. IsCrypted remains true.
func (s *Service) Lock() {
	ClearBytes(s.password)
	s.password = nil
}

// Unlock restores the in-memory passphrase. It neither consults the
// failure limiter nor validates the passphrase — that happens on the next
// DecryptSeed call, whose failure is what the limiter counts.
func (s *Service) Unlock(password string) {
	s.password = []byte(password)
}

// IsUnlocked reports whether a passphrase is currently held in memory.
func (s *Service) IsUnlocked() bool {
	return s.password != nil
}

// IsCrypted implements hdkeystore.EncryptionCollaborator.
func (s *Service) IsCrypted() bool {
	return s.crypted
}

// EncryptSeed implements hdkeystore.EncryptionCollaborator.
func (s *Service) EncryptSeed(plain hdkeystore.MasterSeed, chainID hdkeystore.ChainID) (hdkeystore.CipherBlob, error) {
	if s.password == nil {
		return nil, fmt.Errorf("%w: encryption service has no passphrase loaded", hdkeystore.ErrLocked)
	}

	enc, err := encryptSeedBytes(plain, s.password)
	if err != nil {
		return nil, err
	}
	return hdkeystore.CipherBlob(serializeEncryptedSeed(enc)), nil
}

// DecryptSeed implements hdkeystore.EncryptionCollaborator. Failed
// attempts (wrong passphrase, corrupted blob) count against chainID's
// sliding-window failure budget; once exhausted, further attempts are
// rejected immediately without touching the KDF.
func (s *Service) DecryptSeed(blob hdkeystore.CipherBlob, chainID hdkeystore.ChainID) (hdkeystore.MasterSeed, error) {
	key := chainID.String()

	if !s.limiter.allow(key) {
		return nil, fmt.Errorf("%w: %v for chain %s", hdkeystore.ErrLocked, utils.ErrRateLimitExceeded, chainID)
	}
	if s.password == nil {
		return nil, fmt.Errorf("%w: encryption service has no passphrase loaded", hdkeystore.ErrLocked)
	}

	enc, err := deserializeEncryptedSeed(blob)
	if err != nil {
		s.limiter.recordFailure(key)
		return nil, fmt.Errorf("%w: %v: %v", hdkeystore.ErrLocked, utils.ErrDecryptionFailed, err)
	}

	plain, err := decryptSeedBytes(enc, s.password)
	if err != nil {
		s.limiter.recordFailure(key)
		return nil, fmt.Errorf("%w: %v: %v", hdkeystore.ErrLocked, utils.ErrDecryptionFailed, err)
	}

	s.limiter.reset(key)
	return hdkeystore.MasterSeed(plain), nil
}
