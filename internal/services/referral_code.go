package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	// 9 случайных байт дают 12 символов base64url (~72 бита энтропии).
	referralCodeBytes = 9

	MaxReferralCodeAttempts = 10
)

var ErrReferralCodeExhausted = errors.New("could not issue a unique referral code")

// CodeTakenFunc сообщает, занят ли код.
type CodeTakenFunc func(code string) (bool, error)

// GenerateReferralCode возвращает случайный URL-safe код.
func GenerateReferralCode() (string, error) {
	buf := make([]byte, referralCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// IssueReferralCode генерирует коды, пока taken не сообщит, что код свободен.
// После MaxReferralCodeAttempts попыток возвращает ErrReferralCodeExhausted.
func IssueReferralCode(taken CodeTakenFunc) (string, error) {
	for attempt := 0; attempt < MaxReferralCodeAttempts; attempt++ {
		code, err := GenerateReferralCode()
		if err != nil {
			return "", err
		}
		exists, err := taken(code)
		if err != nil {
			return "", fmt.Errorf("check referral code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrReferralCodeExhausted
}
