package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"github.com/toon-format/toon-go"

	"github.com/kjk/blobseq/u"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatTOON = "toon"
)

type entryInfo struct {
	Pos     int    `json:"pos"`
	Name    string `json:"name"`
	Size    int    `json:"size"`
	Sha1    string `json:"sha1"`
	Preview string `json:"preview"`
}

type listing struct {
	Entries   []entryInfo `json:"entries"`
	Count     int         `json:"count"`
	TotalSize int64       `json:"totalSize"`
}

func (c *command) initLsCmd() {
	cmd := &cobra.Command{
		Use:   "ls SOURCE...",
		Short: "List blobs loaded from sources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			format, err := cmd.Flags().GetString(optionNameFormat)
			if err != nil {
				return err
			}
			switch format {
			case formatText, formatJSON, formatTOON:
			default:
				return fmt.Errorf("unknown format '%s', must be one of: text, json, toon", format)
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

			lst, err := buildListing(seq)
			if err != nil {
				return err
			}
			return writeListing(cmd.OutOrStdout(), lst, format)
		},
	}
	cmd.Flags().String(optionNameFormat, formatText, "output format: text, json or toon")
	c.root.AddCommand(cmd)
}

func buildListing(seq *loadedSequence) (*listing, error) {
	res := &listing{}
	for pos, d := range seq.All() {
		res.Entries = append(res.Entries, entryInfo{
			Pos:     pos,
			Name:    seq.names[pos],
			Size:    len(d),
			Sha1:    u.DataSha1Hex(d),
			Preview: u.Preview(d, defaultPreviewRuneCount),
		})
	}
	var err error
	if res.Count, err = seq.Len(); err != nil {
		return nil, err
	}
	if res.TotalSize, err = seq.Size(); err != nil {
		return nil, err
	}
	return res, nil
}

func toonListing(lst *listing) ([]byte, error) {
	entries := make([]map[string]any, 0, len(lst.Entries))
	for _, e := range lst.Entries {
		entries = append(entries, map[string]any{
			"pos":     e.Pos,
			"name":    e.Name,
			"size":    e.Size,
			"sha1":    e.Sha1,
			"preview": e.Preview,
		})
	}
	m := map[string]any{
		"entries":   entries,
		"count":     lst.Count,
		"totalSize": lst.TotalSize,
	}
	return toon.Marshal(m)
}

func writeListing(w io.Writer, lst *listing, format string) error {
	switch format {
	case formatJSON:
		d, err := json.Marshal(lst)
		if err != nil {
			return err
		}
		_, err = w.Write(pretty.Pretty(d))
		return err
	case formatTOON:
		d, err := toonListing(lst)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", d)
		return err
	}
	for _, e := range lst.Entries {
		_, err := fmt.Fprintf(w, "%d %d %s %s %s\n", e.Pos, e.Size, e.Sha1, e.Name, e.Preview)
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d blobs, %s\n", lst.Count, u.FormatSize(lst.TotalSize))
	return err
}
