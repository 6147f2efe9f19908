// Package fetch downloads release tarballs and verifies them against
// the checksums recorded in the signed registry index.
package fetch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/git-pkgs/hexpm/client"
)

// ChecksumSize is the length of an outer checksum, a SHA-256 digest.
const ChecksumSize = sha256.Size

// Source downloads raw tarball bytes for a release.
type Source interface {
	GetTarball(ctx context.Context, name, version string) ([]byte, error)
}

// ChecksumMismatchError reports a tarball whose digest did not match
// the index record. The bytes are discarded; only the digests survive.
type ChecksumMismatchError struct {
	Name     string
	Version  string
	Expected []byte
	Actual   []byte
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s %s: expected %s, got %s",
		e.Name, e.Version,
		strings.ToUpper(hex.EncodeToString(e.Expected)),
		strings.ToUpper(hex.EncodeToString(e.Actual)))
}

// Fetcher downloads tarballs with retry and checksum verification.
type Fetcher struct {
	source     Source
	maxRetries int
	baseDelay  time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMaxRetries sets the maximum retry attempts.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		f.maxRetries = n
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
func WithBaseDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.baseDelay = d
	}
}

// NewFetcher creates a Fetcher reading from the given source.
func NewFetcher(source Source, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:     source,
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads a release tarball and verifies it against the
// expected outer checksum. On mismatch no bytes are returned.
func (f *Fetcher) Fetch(ctx context.Context, name, version string, checksum []byte) ([]byte, error) {
	if len(checksum) != ChecksumSize {
		return nil, fmt.Errorf("invalid checksum for %s %s: got %d bytes, want %d",
			name, version, len(checksum), ChecksumSize)
	}

	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff with 10% jitter to prevent thundering herd
			delay := f.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			delay += time.Duration(float64(delay) * (rand.Float64() * 0.1))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, err := f.source.GetTarball(ctx, name, version)
		if err != nil {
			lastErr = err
			if retryable(err) {
				continue
			}
			return nil, err
		}

		sum := sha256.Sum256(body)
		if !bytes.Equal(sum[:], checksum) {
			return nil, &ChecksumMismatchError{
				Name:     name,
				Version:  version,
				Expected: checksum,
				Actual:   sum[:],
			}
		}
		return body, nil
	}
	return nil, lastErr
}

func retryable(err error) bool {
	var transport *client.TransportError
	var server *client.ServerError
	var rate *client.RateLimitError
	switch {
	case errors.Is(err, client.ErrNotFound):
		return false
	case errors.As(err, &rate), errors.As(err, &server), errors.As(err, &transport):
		return true
	}
	return false
}
