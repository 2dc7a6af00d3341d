package posts

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// IDProvider issues identifiers for new posts. Identifiers must be unique
// and lexicographically ordered by creation time.
type IDProvider interface {
	NewID() (string, error)
}

type ulidProvider struct {
	clock func() time.Time
}

// NewULIDProvider constructs an IDProvider that issues ULIDs: a 10-character
// Crockford-base32 millisecond timestamp followed by 16 characters of
// crypto-random entropy. Plain string comparison of two ULIDs from distinct
// milliseconds follows creation order.
func NewULIDProvider(clock func() time.Time) IDProvider {
	if clock == nil {
		clock = time.Now
	}
	return &ulidProvider{clock: clock}
}

func (p *ulidProvider) NewID() (string, error) {
	value, err := ulid.New(ulid.Timestamp(p.clock().UTC()), rand.Reader)
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
