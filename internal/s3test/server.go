// Package s3test is a tiny in-memory S3 server for tests. It implements
// only what minioutil needs: bucket HEAD, object GET/HEAD and ListObjectsV2,
// with path-style addressing and no auth.
package s3test

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"time"
)

var modTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

type Server struct {
	*httptest.Server
	Bucket  string
	Objects map[string][]byte
}

// New starts a server with one bucket. Callers must Close() it.
func New(bucket string, objects map[string][]byte) *Server {
	s := &Server{
		Bucket:  bucket,
		Objects: objects,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Endpoint returns host:port, the way minio.New() wants it
func (s *Server) Endpoint() string {
	return strings.TrimPrefix(s.URL, "http://")
}

type listContents struct {
	Key          string
	Size         int64
	LastModified string
	ETag         string
}

type listBucketResult struct {
	XMLName     xml.Name `xml:"ListBucketResult"`
	Name        string
	Prefix      string
	KeyCount    int
	MaxKeys     int
	IsTruncated bool
	Contents    []listContents
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")
	if bucket != s.Bucket {
		http.Error(w, "no such bucket", http.StatusNotFound)
		return
	}
	if key == "" {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		s.serveList(w, r)
		return
	}
	d, ok := s.Objects[key]
	if !ok {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>no such key</Message><Key>%s</Key><BucketName>%s</BucketName></Error>`, key, bucket)
		return
	}
	h := w.Header()
	h.Set("Content-Length", fmt.Sprintf("%d", len(d)))
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Last-Modified", modTime.Format(http.TimeFormat))
	h.Set("ETag", `"`+etag(key)+`"`)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(d)
	}
}

func etag(key string) string {
	return fmt.Sprintf("%032x", len(key))
}

func (s *Server) serveList(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	res := listBucketResult{
		Name:    s.Bucket,
		Prefix:  prefix,
		MaxKeys: 1000,
	}
	var keys []string
	for k := range s.Objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		res.Contents = append(res.Contents, listContents{
			Key:          k,
			Size:         int64(len(s.Objects[k])),
			LastModified: modTime.Format("2006-01-02T15:04:05.000Z"),
			ETag:         `"` + etag(k) + `"`,
		})
	}
	res.KeyCount = len(res.Contents)
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(res)
}
