package dozerblob

import (
	"context"
	"encoding/json"

	"gocloud.dev/blob"
)

func ReadJSON(ctx context.Context, bucket *blob.Bucket, key string, v any) error {
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return err
	}
	defer r.Close()

	return json.NewDecoder(r).Decode(v)
}

func WriteJSON(ctx context.Context, bucket *blob.Bucket, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return bucket.WriteAll(ctx, key, b, &blob.WriterOptions{
		ContentType: "application/json",
	})
}
