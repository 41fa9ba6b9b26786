package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *command) initLenCmd() {
	c.root.AddCommand(&cobra.Command{
		Use:   "len SOURCE...",
		Short: "Print number of blobs loaded from sources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			seq, err := c.loadSequence(cmd, args)
			if err != nil {
				return err
			}
			defer func() {
				if err2 := seq.Destroy(); err == nil {
					err = err2
				}
			}()

			n, err := seq.Len()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
			return err
		},
	})
}
