package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/kjk/blobseq/blobseq"
	"github.com/kjk/blobseq/httputil"
	"github.com/kjk/blobseq/u"
)

const (
	optionNameAddr = "addr"
	defaultAddr    = "localhost:8080"
)

func (c *command) initServeCmd() {
	cmd := &cobra.Command{
		Use:   "serve SOURCE...",
		Short: "Serve blobs loaded from sources over http",
		Long: `Loads blobs and serves them until interrupted:
  GET /blobs        listing in json format
  GET /blobs/{pos}  raw bytes of blob at pos`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			addr, err := cmd.Flags().GetString(optionNameAddr)
			if err != nil {
				return err
			}
			seq, err := c.loadSequence(cmd, args)
			if err != nil {
				return err
			}
			defer func() {
				if err2 := seq.Destroy(); err == nil {
					err = err2
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return httputil.ListenAndServe(ctx, &httputil.ServerOptions{
				Addr:    addr,
				Handler: httputil.LogRequests(newBlobsHandler(seq)),
			})
		},
	}
	cmd.Flags().String(optionNameAddr, defaultAddr, "address to listen on")
	c.root.AddCommand(cmd)
}

// newBlobsHandler serves a sequence that is no longer modified, so
// concurrent requests only read it
func newBlobsHandler(seq *loadedSequence) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /blobs", func(w http.ResponseWriter, r *http.Request) {
		lst, err := buildListing(seq)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		d, err := json.Marshal(lst)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(pretty.Pretty(d))
	})
	mux.HandleFunc("GET /blobs/{pos}", func(w http.ResponseWriter, r *http.Request) {
		pos, err := strconv.Atoi(r.PathValue("pos"))
		if err != nil {
			http.Error(w, "invalid position", http.StatusBadRequest)
			return
		}
		d, err := seq.Get(pos)
		if errors.Is(err, blobseq.ErrOutOfRange) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("ETag", `"`+u.DataSha1Hex(d)+`"`)
		// handles HEAD, Range and If-None-Match
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(d))
	})
	return mux
}
