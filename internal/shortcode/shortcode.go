// Package shortcode generates and validates the base62 codes used in short survey URLs.
package shortcode

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
)

// Alphabet is the 62-symbol set codes are drawn from
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	DefaultLength         = 6
	DefaultFallbackLength = 8
	DefaultMaxAttempts    = 10
)

var validCode = regexp.MustCompile(`^[0-9a-zA-Z]{4,10}$`)

// IsValid reports whether code has the shape of a short code
func IsValid(code string) bool {
	return validCode.MatchString(code)
}

// Generate returns a uniformly random code of the given length
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid short code length %d", length)
	}

	alphabetLen := big.NewInt(int64(len(Alphabet)))
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		code[i] = Alphabet[n.Int64()]
	}
	return string(code), nil
}

// CollisionChecker reports whether code is already held by an unexpired link
type CollisionChecker interface {
	ShortCodeInUse(ctx context.Context, code string) (bool, error)
}

type Generator struct {
	Length         int
	FallbackLength int
	MaxAttempts    int
	checker        CollisionChecker
	logger         *slog.Logger
	random         func(length int) (string, error)
}

func NewGenerator(checker CollisionChecker, logger *slog.Logger) *Generator {
	return &Generator{
		Length:         DefaultLength,
		FallbackLength: DefaultFallbackLength,
		MaxAttempts:    DefaultMaxAttempts,
		checker:        checker,
		logger:         logger,
		random:         Generate,
	}
}

// Next returns a code not held by any stored link. After MaxAttempts collisions it
// returns a single longer code without checking it; the unique index on
// survey_links.short_code rejects a clash and link creation retries.
func (g *Generator) Next(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= g.MaxAttempts; attempt++ {
		code, err := g.random(g.Length)
		if err != nil {
			return "", err
		}

		inUse, err := g.checker.ShortCodeInUse(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check short code collision: %w", err)
		}
		if !inUse {
			return code, nil
		}

		g.logger.Debug("short code collision, retrying", slog.Int("attempt", attempt))
	}

	g.logger.Warn("short code collisions exhausted retries, using longer code",
		slog.Int("attempts", g.MaxAttempts),
		slog.Int("fallback_length", g.FallbackLength),
	)
	return g.random(g.FallbackLength)
}
