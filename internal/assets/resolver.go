package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Rxkz/whispering-tomes-website/internal/aws"
	"github.com/Rxkz/whispering-tomes-website/internal/catalog"
)

// DefaultLinkTTL is how long a download link stays valid.
const DefaultLinkTTL = 24 * time.Hour

// ErrLinkMint is returned when object storage refuses to sign a link.
var ErrLinkMint = errors.New("asset link mint failed")

// SignedLink is a time-bounded URL for one stored object. Never persisted.
type SignedLink struct {
	URL       string
	ExpiresAt time.Time
}

// ItemReader looks up catalog items.
type ItemReader interface {
	Get(ctx context.Context, id string) (*catalog.Item, error)
}

// Resolver turns an item id into its title and a fresh download link.
type Resolver struct {
	items   ItemReader
	presign aws.S3PresignAPI
	bucket  string
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewResolver returns a Resolver signing objects in bucket. ttl <= 0 uses DefaultLinkTTL.
func NewResolver(items ItemReader, presign aws.S3PresignAPI, bucket string, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}
	return &Resolver{
		items:   items,
		presign: presign,
		bucket:  bucket,
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// TTL returns the validity window of minted links.
func (r *Resolver) TTL() time.Duration { return r.ttl }

// Resolve fetches the item and mints a link to its backing asset.
// Errors wrap catalog.ErrItemNotFound or ErrLinkMint.
func (r *Resolver) Resolve(ctx context.Context, itemID string) (*catalog.Item, SignedLink, error) {
	item, err := r.items.Get(ctx, itemID)
	if err != nil {
		return nil, SignedLink{}, err
	}
	if item.AssetRef == "" {
		return item, SignedLink{}, fmt.Errorf("%w: item %s has no asset", ErrLinkMint, itemID)
	}

	issued := r.nowFunc()
	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &r.bucket,
		Key:    &item.AssetRef,
	}, s3.WithPresignExpires(r.ttl))
	if err != nil {
		return item, SignedLink{}, fmt.Errorf("%w: %v", ErrLinkMint, err)
	}
	return item, SignedLink{URL: req.URL, ExpiresAt: issued.Add(r.ttl)}, nil
}
