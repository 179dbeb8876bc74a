package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/nbutton23/zxcvbn-go"
	"github.com/sethvargo/go-diceware/diceware"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

const (
	Letters     = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Digits      = "0123456789"
	Punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	// PasswordAlphabet is the set GeneratePassword draws from.
	PasswordAlphabet = Letters + Digits + Punctuation

	MinPasswordLength     = 8
	DefaultPasswordLength = 12

	MinPassphraseWords     = 4
	DefaultPassphraseWords = 6

	// MinRecommendedScore is the zxcvbn score below which a secret is
	// reported as weak.
	MinRecommendedScore = 3
)

// GeneratePassword returns length characters drawn uniformly from
// PasswordAlphabet using crypto/rand.
func GeneratePassword(length int) (string, error) {
	if length < MinPasswordLength {
		return "", fmt.Errorf("%w: password length must be at least %d", common.ErrorValidation, MinPasswordLength)
	}

	alphabetSize := big.NewInt(int64(len(PasswordAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(randReader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		out[i] = PasswordAlphabet[n.Int64()]
	}
	return string(out), nil
}

// GeneratePassphrase returns words diceware words joined with "-".
func GeneratePassphrase(words int) (string, error) {
	if words < MinPassphraseWords {
		return "", fmt.Errorf("%w: passphrase must have at least %d words", common.ErrorValidation, MinPassphraseWords)
	}

	list, err := diceware.Generate(words)
	if err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	return strings.Join(list, "-"), nil
}

// Strength is a zxcvbn estimate of how hard a secret is to guess.
type Strength struct {
	Score     int // 0 (weakest) .. 4
	CrackTime string
}

// Weak reports whether the score is below MinRecommendedScore.
func (s Strength) Weak() bool {
	return s.Score < MinRecommendedScore
}

// EstimateStrength scores secret with zxcvbn. userInputs are extra words
// (service names, usernames) that should count as guessable.
func EstimateStrength(secret string, userInputs ...string) Strength {
	m := zxcvbn.PasswordStrength(secret, userInputs)
	return Strength{Score: m.Score, CrackTime: m.CrackTimeDisplay}
}
