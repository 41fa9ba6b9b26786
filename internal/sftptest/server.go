// Package sftptest runs an in-memory sftp server for tests.
package sftptest

import (
	"net"

	"github.com/pkg/sftp"
)

type Server struct {
	srv    *sftp.RequestServer
	Client *sftp.Client
}

// New starts an in-memory server and connects a client to it over a pipe.
func New() (*Server, error) {
	c1, c2 := net.Pipe()
	srv := sftp.NewRequestServer(c1, sftp.InMemHandler())
	go func() {
		_ = srv.Serve()
	}()
	fc, err := sftp.NewClientPipe(c2, c2)
	if err != nil {
		srv.Close()
		return nil, err
	}
	return &Server{srv: srv, Client: fc}, nil
}

// WriteFile creates a file, creating parent directories as needed
func (s *Server) WriteFile(path string, d []byte) error {
	dir := path
	for i := len(dir) - 1; i > 0; i-- {
		if dir[i] == '/' {
			dir = dir[:i]
			break
		}
	}
	if dir != path {
		if err := s.Client.MkdirAll(dir); err != nil {
			return err
		}
	}
	f, err := s.Client.Create(path)
	if err != nil {
		return err
	}
	if _, err = f.Write(d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *Server) Close() error {
	return s.srv.Close()
}
