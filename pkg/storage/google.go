package storage

import (
	"context"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GoogleCloudClient struct {
	bucket *storage.BucketHandle
}

func NewGoogleCloudClient(bucket string, keyFile string) (*GoogleCloudClient, error) {
	var opts []option.ClientOption
	if keyFile != "" {
		opts = append(opts, option.WithCredentialsFile(keyFile))
	}
	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	return &GoogleCloudClient{bucket: client.Bucket(bucket)}, nil
}

// Save uploads a local file to the bucket under the given name.
func (c *GoogleCloudClient) Save(name string, localPath string) (err error) {
	reader, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	wc := c.bucket.Object(name).NewWriter(context.Background())
	if _, err = io.Copy(wc, reader); err != nil {
		return err
	}
	return wc.Close()
}
