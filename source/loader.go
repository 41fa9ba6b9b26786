package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"

	"github.com/kjk/blobseq/blobseq"
	"github.com/kjk/blobseq/log"
	"github.com/kjk/blobseq/minioutil"
	"github.com/kjk/blobseq/sftputil"
	"github.com/kjk/blobseq/u"
)

const defaultUserAgent = "blobseq/1.0"

type Config struct {
	// don't decompress .gz, .bz2, .zst, .br files
	Raw bool

	HTTPProxy   string
	UserAgent   string
	HTTPTimeout time.Duration

	// needed for s3:// sources. Bucket is taken from the source
	Minio *minioutil.Config
	// defaults for sftp:// sources. User, host and port from the source
	// take precedence
	SFTP *sftputil.Config
}

// Blob is data loaded from a source
type Blob struct {
	// file path, url, s3 key or remote path
	Name string
	Data []byte
}

// Loader loads blobs from sources. It caches s3 and sftp connections
// so Close() it when done.
type Loader struct {
	Config *Config
	// for "-" source, os.Stdin if nil
	Stdin io.Reader
	// built from Config if nil
	HTTPClient *http.Client
	// sftputil.Dial if nil
	DialSFTP func(*sftputil.Config) (*sftputil.Client, error)

	minioClients map[string]*minioutil.Client
	sftpClients  map[string]*sftputil.Client
}

func NewLoader(config *Config) *Loader {
	if config == nil {
		config = &Config{}
	}
	return &Loader{
		Config: config,
	}
}

// Inserted describes a blob appended to a sequence
type Inserted struct {
	Pos  int
	Name string
	Size int
}

type Report struct {
	Inserted []Inserted
	// names of empty blobs, which can't be inserted
	Skipped []string
}

func (l *Loader) maybeDecompress(d []byte, name string) ([]byte, error) {
	if l.Config.Raw || !u.IsCompressedExt(name) {
		return d, nil
	}
	res, err := u.DecompressData(d, name)
	if err != nil {
		return nil, fmt.Errorf("decompressing '%s': %w", name, err)
	}
	return res, nil
}

func (l *Loader) httpClient() (*http.Client, error) {
	if l.HTTPClient != nil {
		return l.HTTPClient, nil
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if l.Config.HTTPProxy != "" {
		proxyURL, err := url.Parse(l.Config.HTTPProxy)
		if err != nil {
			return nil, fmt.Errorf("invalid http proxy '%s': %w", l.Config.HTTPProxy, err)
		}
		tr.Proxy = http.ProxyURL(proxyURL)
	}
	l.HTTPClient = &http.Client{
		Transport: tr,
		Timeout:   l.Config.HTTPTimeout,
	}
	return l.HTTPClient, nil
}

func (l *Loader) loadHTTP(ctx context.Context, src *Source) ([]Blob, error) {
	cl, err := l.httpClient()
	if err != nil {
		return nil, err
	}
	ua := l.Config.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	var buf bytes.Buffer
	err = requests.
		URL(src.Path).
		Client(cl).
		UserAgent(ua).
		ToBytesBuffer(&buf).
		Fetch(ctx)
	if err != nil {
		return nil, err
	}
	uri, _ := url.Parse(src.Path)
	d, err := l.maybeDecompress(buf.Bytes(), uri.Path)
	if err != nil {
		return nil, err
	}
	return []Blob{{Name: src.Path, Data: d}}, nil
}

func (l *Loader) loadFile(path string) (Blob, error) {
	var d []byte
	var err error
	if l.Config.Raw {
		d, err = os.ReadFile(path)
	} else {
		d, err = u.ReadFileMaybeCompressed(path)
	}
	if err != nil {
		return Blob{}, err
	}
	return Blob{Name: path, Data: d}, nil
}

func (l *Loader) loadLocal(src *Source) ([]Blob, error) {
	if !u.DirExists(src.Path) {
		b, err := l.loadFile(src.Path)
		if err != nil {
			return nil, err
		}
		return []Blob{b}, nil
	}
	files, err := u.ListFilesInDir(src.Path)
	if err != nil {
		return nil, err
	}
	var res []Blob
	for _, p := range files {
		b, err := l.loadFile(p)
		if err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, nil
}

func (l *Loader) loadStdin() ([]Blob, error) {
	r := l.Stdin
	if r == nil {
		r = os.Stdin
	}
	d, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return []Blob{{Name: "stdin", Data: d}}, nil
}

func (l *Loader) minioClient(ctx context.Context, bucket string) (*minioutil.Client, error) {
	if c := l.minioClients[bucket]; c != nil {
		return c, nil
	}
	if l.Config.Minio == nil {
		return nil, errors.New("s3 sources need s3 endpoint and credentials")
	}
	config := *l.Config.Minio
	config.Bucket = bucket
	c, err := minioutil.New(ctx, &config)
	if err != nil {
		return nil, err
	}
	if l.minioClients == nil {
		l.minioClients = map[string]*minioutil.Client{}
	}
	l.minioClients[bucket] = c
	return c, nil
}

func (l *Loader) loadS3(ctx context.Context, src *Source) ([]Blob, error) {
	c, err := l.minioClient(ctx, src.Bucket)
	if err != nil {
		return nil, err
	}
	keys := []string{src.Path}
	if src.IsPrefix() {
		keys, err = c.ListObjects(ctx, src.Path)
		if err != nil {
			return nil, err
		}
	}
	var res []Blob
	for _, key := range keys {
		d, err := c.ReadData(ctx, key)
		if err != nil {
			return nil, err
		}
		d, err = l.maybeDecompress(d, key)
		if err != nil {
			return nil, err
		}
		res = append(res, Blob{Name: "s3://" + src.Bucket + "/" + key, Data: d})
	}
	return res, nil
}

func (l *Loader) sftpClient(src *Source) (*sftputil.Client, error) {
	var config sftputil.Config
	if l.Config.SFTP != nil {
		config = *l.Config.SFTP
	}
	if src.User != "" {
		config.User = src.User
	}
	config.Addr = src.Host
	if src.Port != 0 {
		config.Port = src.Port
	}
	key := fmt.Sprintf("%s@%s:%d", config.User, config.Addr, config.Port)
	if c := l.sftpClients[key]; c != nil {
		return c, nil
	}
	dial := l.DialSFTP
	if dial == nil {
		dial = sftputil.Dial
	}
	c, err := dial(&config)
	if err != nil {
		return nil, err
	}
	if l.sftpClients == nil {
		l.sftpClients = map[string]*sftputil.Client{}
	}
	l.sftpClients[key] = c
	return c, nil
}

func (l *Loader) loadSFTP(src *Source) ([]Blob, error) {
	c, err := l.sftpClient(src)
	if err != nil {
		return nil, err
	}
	paths := []string{src.Path}
	if src.IsPrefix() {
		paths, err = c.ReadDir(strings.TrimSuffix(src.Path, "/"))
		if err != nil {
			return nil, err
		}
	}
	var res []Blob
	for _, p := range paths {
		d, err := c.ReadFile(p)
		if err != nil {
			return nil, err
		}
		d, err = l.maybeDecompress(d, path.Base(p))
		if err != nil {
			return nil, err
		}
		res = append(res, Blob{Name: p, Data: d})
	}
	return res, nil
}

// Load reads all blobs named by src
func (l *Loader) Load(ctx context.Context, src string) ([]Blob, error) {
	s, err := Parse(src)
	if err != nil {
		return nil, err
	}
	switch s.Kind {
	case KindStdin:
		return l.loadStdin()
	case KindFile:
		return l.loadLocal(s)
	case KindHTTP:
		return l.loadHTTP(ctx, s)
	case KindS3:
		return l.loadS3(ctx, s)
	case KindSFTP:
		return l.loadSFTP(s)
	}
	return nil, fmt.Errorf("unsupported source kind %s", s.Kind)
}

// LoadInto loads blobs from srcs and appends them to seq, in order.
// Empty blobs are skipped. On error, blobs inserted so far stay in seq.
func (l *Loader) LoadInto(ctx context.Context, seq *blobseq.Sequence, srcs ...string) (*Report, error) {
	res := &Report{}
	for _, src := range srcs {
		timeStart := time.Now()
		blobs, err := l.Load(ctx, src)
		if err != nil {
			return res, fmt.Errorf("loading '%s': %w", src, err)
		}
		for _, b := range blobs {
			if len(b.Data) == 0 {
				log.Verbosef("skipping empty '%s'\n", b.Name)
				res.Skipped = append(res.Skipped, b.Name)
				continue
			}
			pos, err := seq.InsertPos(b.Data)
			if err != nil {
				return res, fmt.Errorf("inserting '%s': %w", b.Name, err)
			}
			log.Verbosef("%d: '%s' %s\n", pos, b.Name, u.FormatSize(int64(len(b.Data))))
			log.Event("insert", "pos", pos, "name", b.Name, "size", len(b.Data))
			res.Inserted = append(res.Inserted, Inserted{Pos: pos, Name: b.Name, Size: len(b.Data)})
		}
		log.EventWithDuration("load", time.Since(timeStart), "src", src, "blobs", len(blobs))
	}
	return res, nil
}

// Close closes cached sftp connections
func (l *Loader) Close() error {
	var err error
	for _, c := range l.sftpClients {
		if err2 := c.Close(); err == nil {
			err = err2
		}
	}
	l.sftpClients = nil
	l.minioClients = nil
	return err
}
