package credential

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPIN is accepted until an admin sets their own.
const DefaultPIN = "1234"

// MinPINLength is the shortest PIN SetPIN accepts.
const MinPINLength = 4

var (
	// ErrBadPIN is returned when a PIN does not match.
	ErrBadPIN = errors.New("incorrect admin PIN")

	// ErrPINTooShort is returned when a new PIN is under MinPINLength.
	ErrPINTooShort = fmt.Errorf("PIN must be at least %d characters", MinPINLength)
)

// VerifyPIN checks pin against the stored hash, or against DefaultPIN when
// none has been set.
func (r *Ring) VerifyPIN(pin string) error {
	hash, err := r.Get(KeyAdminPIN)
	if errors.Is(err, ErrNotFound) {
		if subtle.ConstantTimeCompare([]byte(pin), []byte(DefaultPIN)) == 1 {
			return nil
		}
		return ErrBadPIN
	}
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		return ErrBadPIN
	}
	return nil
}

// SetPIN stores a bcrypt hash of pin.
func (r *Ring) SetPIN(pin string) error {
	if len(pin) < MinPINLength {
		return ErrPINTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing PIN: %w", err)
	}
	return r.Set(KeyAdminPIN, string(hash))
}

// ResetPIN drops the stored PIN so DefaultPIN applies again.
func (r *Ring) ResetPIN() error {
	return r.Delete(KeyAdminPIN)
}
