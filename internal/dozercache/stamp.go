package dozercache

import (
	"context"
	"time"

	"github.com/frantjc/dozer/internal/dozerblob"
	"github.com/opencontainers/go-digest"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Stamp records that the components identified by Key
// were successfully installed.
type Stamp struct {
	Key        digest.Digest `json:"key"`
	Components []string      `json:"components,omitempty"`
	Created    time.Time     `json:"created"`
}

// HasStamp reports whether a Stamp exists at key in bucket.
func HasStamp(ctx context.Context, bucket *blob.Bucket, key string) (bool, error) {
	return bucket.Exists(ctx, key)
}

// ReadStamp reads the Stamp at key in bucket. It returns nil
// and no error if there is no such Stamp.
func ReadStamp(ctx context.Context, bucket *blob.Bucket, key string) (*Stamp, error) {
	stamp := &Stamp{}
	if err := dozerblob.ReadJSON(ctx, bucket, key, stamp); gcerrors.Code(err) == gcerrors.NotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return stamp, nil
}

// WriteStamp writes stamp to key in bucket, setting Created if it is unset.
func WriteStamp(ctx context.Context, bucket *blob.Bucket, key string, stamp *Stamp) error {
	if stamp.Created.IsZero() {
		stamp.Created = time.Now().UTC()
	}

	return dozerblob.WriteJSON(ctx, bucket, key, stamp)
}
