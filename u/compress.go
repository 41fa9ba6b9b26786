package u

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// implement io.ReadCloser over a decompressing reader.
// Close() closes the decompressor (if it needs closing) and then the source
type decompressReadCloser struct {
	r         io.Reader
	closeR    func()
	src       io.Closer
	closedSrc bool
}

func (rc *decompressReadCloser) Read(p []byte) (int, error) {
	return rc.r.Read(p)
}

func (rc *decompressReadCloser) Close() error {
	if rc.closeR != nil {
		rc.closeR()
		rc.closeR = nil
	}
	if rc.src == nil || rc.closedSrc {
		return nil
	}
	rc.closedSrc = true
	return rc.src.Close()
}

// IsCompressedExt returns true if we know how to decompress files
// with a given name, based on its extension
func IsCompressedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz", ".bz2", ".zst", ".zstd", ".br":
		return true
	}
	return false
}

// NewDecompressReader wraps r in a decompressor picked by the extension
// of name. If the extension is not a compression extension, returns r
// unchanged (wrapped so that Close() closes r if it's an io.Closer).
// TODO: could sniff magic bytes instead of trusting the extension
func NewDecompressReader(r io.Reader, name string) (io.ReadCloser, error) {
	src, _ := r.(io.Closer)
	rc := &decompressReadCloser{r: r, src: src}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz":
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		rc.r = gr
		rc.closeR = func() { _ = gr.Close() }
	case ".bz2":
		rc.r = bzip2.NewReader(r)
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		rc.r = zr
		rc.closeR = zr.Close
	case ".br":
		rc.r = brotli.NewReader(r)
	}
	return rc, nil
}

// OpenFileMaybeCompressed opens a file that might be compressed with gzip,
// bzip2, zstd or brotli
func OpenFileMaybeCompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rc, err := NewDecompressReader(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return rc, nil
}

// ReadFileMaybeCompressed reads a file, decompressing it if needed
func ReadFileMaybeCompressed(path string) ([]byte, error) {
	r, err := OpenFileMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// DecompressData decompresses d according to extension of name
func DecompressData(d []byte, name string) ([]byte, error) {
	if !IsCompressedExt(name) {
		return d, nil
	}
	r, err := NewDecompressReader(bytes.NewReader(d), name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func getErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func GzipCompressData(d []byte) ([]byte, error) {
	var dst bytes.Buffer
	w, err := gzip.NewWriterLevel(&dst, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	_, err = w.Write(d)
	err2 := w.Close()
	if err = getErr(err, err2); err != nil {
		return nil, err
	}
	return dst.Bytes(), nil
}

func BrCompressData(d []byte, level int) ([]byte, error) {
	var dst bytes.Buffer
	w := brotli.NewWriterLevel(&dst, level)
	_, err := w.Write(d)
	err2 := w.Close()
	if err = getErr(err, err2); err != nil {
		return nil, err
	}
	return dst.Bytes(), nil
}

func BrCompressDataBest(d []byte) ([]byte, error) {
	return BrCompressData(d, brotli.BestCompression)
}

func ZstdCompressData(d []byte) ([]byte, error) {
	var dst bytes.Buffer
	// zstd.SpeedBestCompression is much slower and not much better
	w, err := zstd.NewWriter(&dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	_, err = w.Write(d)
	err2 := w.Close()
	if err = getErr(err, err2); err != nil {
		return nil, err
	}
	return dst.Bytes(), nil
}

func ZstdDecompressData(d []byte) ([]byte, error) {
	zr, err := zstd.NewReader(bytes.NewReader(d))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
