package dozerblob

import (
	"context"
	"io"

	"github.com/opencontainers/go-digest"
	"gocloud.dev/blob"
)

// Copy writes r to key in bucket and returns the digest
// and size of what was written. If r fails, nothing is written.
func Copy(ctx context.Context, bucket *blob.Bucket, key string, r io.Reader, opts *blob.WriterOptions) (digest.Digest, int64, error) {
	// A blob.Writer whose context is canceled before Close discards the write.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := bucket.NewWriter(wctx, key, opts)
	if err != nil {
		return "", 0, err
	}

	digester := digest.SHA256.Digester()

	n, err := io.Copy(io.MultiWriter(w, digester.Hash()), r)
	if err != nil {
		cancel()
		_ = w.Close()
		return "", 0, err
	}

	if err = w.Close(); err != nil {
		return "", 0, err
	}

	return digester.Digest(), n, nil
}
