package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kjk/blobseq/blobseq"
	"github.com/kjk/blobseq/minioutil"
	"github.com/kjk/blobseq/sftputil"
	"github.com/kjk/blobseq/source"
	"github.com/kjk/blobseq/u"
)

func (c *command) sourceConfig() *source.Config {
	res := &source.Config{
		Raw:         c.config.GetBool(optionNameRaw),
		HTTPProxy:   c.config.GetString(optionNameHTTPProxy),
		HTTPTimeout: c.config.GetDuration(optionNameHTTPTimeout),
		UserAgent:   c.config.GetString(optionNameUserAgent),
		SFTP: &sftputil.Config{
			User:            c.config.GetString(optionNameSFTPUser),
			Port:            c.config.GetUint(optionNameSFTPPort),
			KeyPath:         expandHome(c.config.GetString(optionNameSFTPKey), c.homeDir),
			Passphrase:      c.config.GetString(optionNameSFTPPassphr),
			Password:        c.config.GetString(optionNameSFTPPassword),
			InsecureHostKey: c.config.GetBool(optionNameSFTPInsecure),
			Timeout:         c.config.GetDuration(optionNameSFTPTimeout),
		},
	}
	if endpoint := c.config.GetString(optionNameS3Endpoint); endpoint != "" {
		res.Minio = &minioutil.Config{
			Endpoint: endpoint,
			Access:   c.config.GetString(optionNameS3Access),
			Secret:   c.config.GetString(optionNameS3Secret),
			Region:   c.config.GetString(optionNameS3Region),
			Insecure: c.config.GetBool(optionNameS3Insecure),
		}
	}
	return res
}

func (c *command) newSequence() (*blobseq.Sequence, error) {
	opts := &blobseq.Options{
		MaxEntries: c.config.GetInt(optionNameMaxEntries),
	}
	if maxBytes := c.config.GetInt64(optionNameMaxBytes); maxBytes > 0 {
		opts.Allocator = blobseq.NewLimitAllocator(maxBytes)
	}
	return blobseq.New(opts)
}

// loadedSequence is a sequence filled from sources.
// Call Destroy() when done.
type loadedSequence struct {
	*blobseq.Sequence
	// names[pos] is the name of the blob at pos
	names []string
}

func (c *command) loadSequence(cmd *cobra.Command, srcs []string) (*loadedSequence, error) {
	seq, err := c.newSequence()
	if err != nil {
		return nil, err
	}
	l := source.NewLoader(c.sourceConfig())
	l.Stdin = cmd.InOrStdin()
	defer l.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rep, err := l.LoadInto(ctx, seq, srcs...)
	if err != nil {
		_ = seq.Destroy()
		return nil, err
	}
	res := &loadedSequence{Sequence: seq}
	for _, ins := range rep.Inserted {
		u.PanicIf(ins.Pos != len(res.names), "blob '%s' inserted at %d, expected %d", ins.Name, ins.Pos, len(res.names))
		res.names = append(res.names, ins.Name)
	}
	return res, nil
}
