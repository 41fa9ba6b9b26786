package sftputil

import (
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"time"

	"github.com/melbahja/goph"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

const defaultPort = 22

type Config struct {
	User string
	Addr string
	// 22 if 0
	Port uint
	// private key file, takes precedence over Password
	KeyPath    string
	Passphrase string
	Password   string
	// skip checking server against ~/.ssh/known_hosts
	InsecureHostKey bool
	Timeout         time.Duration
}

// Client reads files over sftp
type Client struct {
	ssh  *goph.Client
	sftp *sftp.Client
}

func (c *Config) auth() (goph.Auth, error) {
	if c.KeyPath != "" {
		return goph.Key(c.KeyPath, c.Passphrase)
	}
	if c.Password != "" {
		return goph.Password(c.Password), nil
	}
	return nil, errors.New("must provide KeyPath or Password")
}

func (c *Config) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if c.InsecureHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	return goph.DefaultKnownHosts()
}

// Dial opens ssh connection and starts sftp session on it
func Dial(config *Config) (*Client, error) {
	if config == nil || config.User == "" || config.Addr == "" {
		return nil, errors.New("must provide User and Addr in config")
	}
	auth, err := config.auth()
	if err != nil {
		return nil, err
	}
	cb, err := config.hostKeyCallback()
	if err != nil {
		return nil, fmt.Errorf("known hosts: %w", err)
	}
	port := config.Port
	if port == 0 {
		port = defaultPort
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = goph.DefaultTimeout
	}
	sc, err := goph.NewConn(&goph.Config{
		User:     config.User,
		Addr:     config.Addr,
		Port:     port,
		Auth:     auth,
		Timeout:  timeout,
		Callback: cb,
	})
	if err != nil {
		return nil, fmt.Errorf("ssh to %s@%s:%d: %w", config.User, config.Addr, port, err)
	}
	fc, err := sc.NewSftp()
	if err != nil {
		sc.Close()
		return nil, fmt.Errorf("sftp session: %w", err)
	}
	return &Client{ssh: sc, sftp: fc}, nil
}

// NewFromSftp wraps an existing sftp session
func NewFromSftp(fc *sftp.Client) *Client {
	return &Client{sftp: fc}
}

func (c *Client) ReadFile(remotePath string) ([]byte, error) {
	f, err := c.sftp.Open(remotePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// ReadDir returns paths of regular files in dir, sorted
func (c *Client) ReadDir(dir string) ([]string, error) {
	fis, err := c.sftp.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var res []string
	for _, fi := range fis {
		if !fi.Mode().IsRegular() {
			continue
		}
		res = append(res, path.Join(dir, fi.Name()))
	}
	sort.Strings(res)
	return res, nil
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	err := c.sftp.Close()
	if c.ssh != nil {
		if err2 := c.ssh.Close(); err == nil {
			err = err2
		}
	}
	return err
}
