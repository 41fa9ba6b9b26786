package minioutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjk/blobseq/internal/s3test"
)

func TestNewValidatesConfig(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, nil)
	assert.Error(t, err)

	_, err = New(ctx, &Config{Access: "a", Bucket: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Secret")
	assert.Contains(t, err.Error(), "Endpoint")
	assert.NotContains(t, err.Error(), "Bucket")
}

func TestNewBadEndpoint(t *testing.T) {
	c := &Config{
		Access:   "a",
		Secret:   "s",
		Bucket:   "b",
		Endpoint: "http://not/a/host",
	}
	_, err := New(context.Background(), c)
	assert.Error(t, err)
}

func newTestClient(t *testing.T, objects map[string][]byte) *Client {
	srv := s3test.New("blobs", objects)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), &Config{
		Access:   "access",
		Secret:   "secret",
		Bucket:   "blobs",
		Endpoint: srv.Endpoint(),
		Region:   "us-east-1",
		Insecure: true,
	})
	require.NoError(t, err)
	return c
}

func TestReadAndList(t *testing.T) {
	ctx := context.Background()
	objects := map[string][]byte{
		"a/2.bin":  {0, 1, 0, 0xff},
		"a/1.txt":  []byte("first"),
		"b/x.txt":  []byte("other"),
		"a/sub/3":  []byte("nested"),
		"top.json": []byte(`{}`),
	}
	c := newTestClient(t, objects)

	d, err := c.ReadData(ctx, "a/2.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 0, 0xff}, d)

	assert.True(t, c.Exists(ctx, "a/1.txt"))
	assert.False(t, c.Exists(ctx, "a/missing"))

	_, err = c.ReadData(ctx, "a/missing")
	assert.Error(t, err)

	keys, err := c.ListObjects(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1.txt", "a/2.bin", "a/sub/3"}, keys)
}

func TestNewMissingBucket(t *testing.T) {
	srv := s3test.New("blobs", nil)
	defer srv.Close()
	_, err := New(context.Background(), &Config{
		Access:   "access",
		Secret:   "secret",
		Bucket:   "other",
		Endpoint: srv.Endpoint(),
		Region:   "us-east-1",
		Insecure: true,
	})
	assert.Error(t, err)
}
