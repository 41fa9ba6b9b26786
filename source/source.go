package source

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

type Kind int

const (
	KindStdin Kind = iota
	// local file or directory
	KindFile
	KindHTTP
	KindS3
	KindSFTP
)

var kindNames = []string{"stdin", "file", "http", "s3", "sftp"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Source describes where blobs come from
type Source struct {
	Kind Kind
	// as given to Parse()
	Raw string
	// file: local path
	// http: full url
	// s3: object key or key prefix if it ends with '/' (or is empty)
	// sftp: remote path, a directory if it ends with '/'
	Path string
	// s3 only
	Bucket string
	// sftp only
	User string
	Host string
	Port uint
}

// IsPrefix returns true if a remote source names a "directory" of blobs
func (s *Source) IsPrefix() bool {
	switch s.Kind {
	case KindS3:
		return s.Path == "" || strings.HasSuffix(s.Path, "/")
	case KindSFTP:
		return strings.HasSuffix(s.Path, "/")
	}
	return false
}

// Parse parses a source string:
//   - "-" : stdin
//   - http://..., https://... : url
//   - s3://bucket/key or s3://bucket/prefix/
//   - sftp://[user@]host[:port]/path or sftp://[user@]host[:port]/dir/
//   - anything else : local file or directory
func Parse(s string) (*Source, error) {
	if s == "" {
		return nil, fmt.Errorf("empty source")
	}
	if s == "-" {
		return &Source{Kind: KindStdin, Raw: s}, nil
	}
	scheme, _, ok := strings.Cut(s, "://")
	if !ok {
		return &Source{Kind: KindFile, Raw: s, Path: s}, nil
	}
	uri, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid source '%s': %w", s, err)
	}
	if uri.Host == "" {
		return nil, fmt.Errorf("invalid source '%s': no host", s)
	}
	switch strings.ToLower(scheme) {
	case "http", "https":
		return &Source{Kind: KindHTTP, Raw: s, Path: s}, nil
	case "s3":
		return &Source{
			Kind:   KindS3,
			Raw:    s,
			Bucket: uri.Host,
			Path:   strings.TrimPrefix(uri.Path, "/"),
		}, nil
	case "sftp":
		res := &Source{
			Kind: KindSFTP,
			Raw:  s,
			Host: uri.Hostname(),
			Path: uri.Path,
		}
		if uri.User != nil {
			res.User = uri.User.Username()
		}
		if p := uri.Port(); p != "" {
			port, err := strconv.ParseUint(p, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("invalid port in '%s': %w", s, err)
			}
			res.Port = uint(port)
		}
		if res.Path == "" {
			return nil, fmt.Errorf("invalid source '%s': no path", s)
		}
		return res, nil
	}
	return nil, fmt.Errorf("unsupported scheme '%s' in '%s'", scheme, s)
}
