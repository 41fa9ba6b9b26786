package httputil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/kjk/blobseq/log"
)

const shutdownTimeout = 5 * time.Second

type ServerOptions struct {
	Addr    string // e.g. ":8080" or "localhost:0"
	Handler http.Handler
	// called with the address we listen on, once we do
	OnListening func(addr string)
}

func newServer(handler http.Handler) *http.Server {
	return &http.Server{
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
		Handler:      handler,
	}
}

// ListenAndServe runs http server until ctx is cancelled, then shuts it down,
// giving in-flight requests a few seconds to finish
func ListenAndServe(ctx context.Context, opts *ServerOptions) error {
	if opts.Addr == "" {
		return errors.New("need to provide opts.Addr")
	}
	if opts.Handler == nil {
		return errors.New("need to provide opts.Handler")
	}
	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return err
	}
	addr := ln.Addr().String()
	log.Logf("listening on http://%s\n", addr)
	if opts.OnListening != nil {
		opts.OnListening(addr)
	}

	httpSrv := newServer(opts.Handler)
	chServeErr := make(chan error, 1)
	go func() {
		err := httpSrv.Serve(ln)
		// mute error caused by Shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		chServeErr <- err
	}()

	select {
	case err = <-chServeErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Logf("http server shutdown: %s\n", err)
	}
	return <-chServeErr
}
