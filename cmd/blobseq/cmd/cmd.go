package cmd

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kjk/blobseq/log"
)

const (
	optionNameLogDir        = "log-dir"
	optionNameVerbose       = "verbose"
	optionNameMaxBytes      = "max-bytes"
	optionNameMaxEntries    = "max-entries"
	optionNameRaw           = "raw"
	optionNameHTTPProxy     = "http-proxy"
	optionNameHTTPTimeout   = "http-timeout"
	optionNameUserAgent     = "user-agent"
	optionNameS3Endpoint    = "s3-endpoint"
	optionNameS3Access      = "s3-access"
	optionNameS3Secret      = "s3-secret"
	optionNameS3Region      = "s3-region"
	optionNameS3Insecure    = "s3-insecure"
	optionNameSFTPUser      = "sftp-user"
	optionNameSFTPPort      = "sftp-port"
	optionNameSFTPKey       = "sftp-key"
	optionNameSFTPPassword  = "sftp-password"
	optionNameSFTPPassphr   = "sftp-passphrase"
	optionNameSFTPInsecure  = "sftp-insecure-host-key"
	optionNameSFTPTimeout   = "sftp-timeout"
	optionNameFormat        = "format"
	defaultConfigName       = ".blobseq"
	envPrefix               = "blobseq"
	defaultHTTPTimeout      = time.Minute
	defaultSFTPDialTimeout  = 20 * time.Second
	defaultPreviewRuneCount = 32
)

type command struct {
	root    *cobra.Command
	config  *viper.Viper
	cfgFile string
	homeDir string
}

type option func(*command)

func newCommand(opts ...option) (c *command, err error) {
	c = &command{
		root: &cobra.Command{
			Use:   "blobseq",
			Short: "Load blobs into a sequence and inspect them",
			Long: `blobseq loads blobs from local files, directories, stdin, http(s) urls,
s3://bucket/key and sftp://user@host/path sources into an in-memory
blob sequence, in order, and prints what's in it.`,
			SilenceErrors: true,
			SilenceUsage:  true,
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				if err := c.initConfig(); err != nil {
					return err
				}
				c.initLog()
				return nil
			},
		},
	}

	c.initGlobalFlags()
	for _, o := range opts {
		o(c)
	}

	if c.homeDir == "" {
		if c.homeDir, err = os.UserHomeDir(); err != nil {
			return nil, err
		}
	}

	c.initLsCmd()
	c.initGetCmd()
	c.initLenCmd()
	c.initServeCmd()
	c.initVersionCmd()
	return c, nil
}

func (c *command) Execute() (err error) {
	defer log.Close()
	return c.root.Execute()
}

// Execute parses command line arguments and runs appropriate functions.
func Execute() (err error) {
	c, err := newCommand()
	if err != nil {
		return err
	}
	return c.Execute()
}

func (c *command) initGlobalFlags() {
	globalFlags := c.root.PersistentFlags()
	globalFlags.StringVar(&c.cfgFile, "config", "", "config file (default is $HOME/.blobseq.yaml)")
	globalFlags.String(optionNameLogDir, "", "directory for log files, no log files if empty")
	globalFlags.BoolP(optionNameVerbose, "v", false, "verbose logging")
	globalFlags.Int64(optionNameMaxBytes, 0, "max total size of blobs in bytes, 0 for no limit")
	globalFlags.Int(optionNameMaxEntries, 0, "max number of blobs, 0 for no limit")
	globalFlags.Bool(optionNameRaw, false, "don't decompress .gz, .bz2, .zst and .br blobs")
	globalFlags.String(optionNameHTTPProxy, "", "proxy url for http(s) sources")
	globalFlags.Duration(optionNameHTTPTimeout, defaultHTTPTimeout, "timeout for http(s) requests")
	globalFlags.String(optionNameUserAgent, "", "User-Agent for http(s) requests")
	globalFlags.String(optionNameS3Endpoint, "", "s3 endpoint e.g. s3.amazonaws.com")
	globalFlags.String(optionNameS3Access, "", "s3 access key")
	globalFlags.String(optionNameS3Secret, "", "s3 secret key")
	globalFlags.String(optionNameS3Region, "", "s3 region")
	globalFlags.Bool(optionNameS3Insecure, false, "use http instead of https for s3")
	globalFlags.String(optionNameSFTPUser, "", "default user for sftp sources")
	globalFlags.Uint(optionNameSFTPPort, 0, "default port for sftp sources, 22 if 0")
	globalFlags.String(optionNameSFTPKey, "", "private key file for sftp sources")
	globalFlags.String(optionNameSFTPPassphr, "", "passphrase of sftp private key")
	globalFlags.String(optionNameSFTPPassword, "", "password for sftp sources")
	globalFlags.Bool(optionNameSFTPInsecure, false, "don't verify sftp host keys against ~/.ssh/known_hosts")
	globalFlags.Duration(optionNameSFTPTimeout, defaultSFTPDialTimeout, "timeout for sftp connections")
}

func (c *command) initConfig() (err error) {
	config := viper.New()
	if c.cfgFile != "" {
		config.SetConfigFile(c.cfgFile)
	} else {
		config.AddConfigPath(c.homeDir)
		config.SetConfigName(defaultConfigName)
	}

	// BLOBSEQ_MAX_BYTES for --max-bytes etc.
	config.SetEnvPrefix(envPrefix)
	config.AutomaticEnv()
	config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := config.ReadInConfig(); err != nil {
		// the default config file is optional, the one given with --config is not
		var e viper.ConfigFileNotFoundError
		if c.cfgFile != "" || !errors.As(err, &e) {
			return err
		}
	}
	if err := config.BindPFlags(c.root.PersistentFlags()); err != nil {
		return err
	}
	c.config = config
	return nil
}

// logs go to stderr so that stdout only has the output of a command
func (c *command) initLog() {
	dir := c.config.GetString(optionNameLogDir)
	if dir != "" {
		dir = expandHome(dir, c.homeDir)
	}
	log.Init(&log.Config{
		Dir: dir,
		Out: c.root.ErrOrStderr(),
	})
	log.Verbose = c.config.GetBool(optionNameVerbose)
}

func expandHome(path string, homeDir string) string {
	if path == "~" {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

func WithCfgFile(f string) func(c *command) {
	return func(c *command) {
		c.cfgFile = f
	}
}

func WithHomeDir(dir string) func(c *command) {
	return func(c *command) {
		c.homeDir = dir
	}
}

func WithArgs(a ...string) func(c *command) {
	return func(c *command) {
		c.root.SetArgs(a)
	}
}

func WithInput(r io.Reader) func(c *command) {
	return func(c *command) {
		c.root.SetIn(r)
	}
}

func WithOutput(w io.Writer) func(c *command) {
	return func(c *command) {
		c.root.SetOut(w)
	}
}

func WithErrorOutput(w io.Writer) func(c *command) {
	return func(c *command) {
		c.root.SetErr(w)
	}
}
