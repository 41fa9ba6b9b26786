package minioutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Access   string
	Secret   string
	Bucket   string
	Endpoint string
	Region   string
	// use http instead of https, for local minio servers
	Insecure     bool
	RequestTrace io.Writer
}

// Client reads blobs from a single bucket
type Client struct {
	Client *minio.Client
	Bucket string
	config *Config
}

func (c *Config) validate() error {
	if c == nil {
		return errors.New("must provide config")
	}
	var missing []string
	if c.Access == "" {
		missing = append(missing, "Access")
	}
	if c.Secret == "" {
		missing = append(missing, "Secret")
	}
	if c.Bucket == "" {
		missing = append(missing, "Bucket")
	}
	if c.Endpoint == "" {
		missing = append(missing, "Endpoint")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing config fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// New connects to the server and checks that config.Bucket exists
func New(ctx context.Context, config *Config) (*Client, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	c := config
	mc, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Access, c.Secret, ""),
		Region: c.Region,
		Secure: !c.Insecure,
	})
	if err != nil {
		return nil, err
	}
	if c.RequestTrace != nil {
		mc.TraceOn(c.RequestTrace)
	}
	found, err := mc.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", c.Bucket)
	}
	return &Client{
		Client: mc,
		Bucket: c.Bucket,
		config: c,
	}, nil
}

func (c *Client) Exists(ctx context.Context, remotePath string) bool {
	_, err := c.Client.StatObject(ctx, c.Bucket, remotePath, minio.StatObjectOptions{})
	return err == nil
}

// ReadData downloads the whole object into memory
func (c *Client) ReadData(ctx context.Context, remotePath string) ([]byte, error) {
	obj, err := c.Client.GetObject(ctx, c.Bucket, remotePath, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	d, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("reading '%s' from bucket '%s': %w", remotePath, c.Bucket, err)
	}
	return d, nil
}

// ListObjects returns keys of all objects under prefix, sorted
func (c *Client) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}
	var keys []string
	for oi := range c.Client.ListObjects(ctx, c.Bucket, opts) {
		if oi.Err != nil {
			return nil, oi.Err
		}
		// "directory" markers
		if strings.HasSuffix(oi.Key, "/") {
			continue
		}
		keys = append(keys, oi.Key)
	}
	sort.Strings(keys)
	return keys, nil
}
