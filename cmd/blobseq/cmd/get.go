package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func (c *command) initGetCmd() {
	c.root.AddCommand(&cobra.Command{
		Use:   "get POS SOURCE...",
		Short: "Write raw bytes of blob at POS to stdout",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			pos, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid position '%s': %w", args[0], err)
			}
			seq, err := c.loadSequence(cmd, args[1:])
			if err != nil {
				return err
			}
			defer func() {
				if err2 := seq.Destroy(); err == nil {
					err = err2
				}
			}()

			d, err := seq.Get(pos)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(d)
			return err
		},
	})
}
