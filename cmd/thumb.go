package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	thumbWidth  int
	thumbHeight int
)

var thumbCmd = &cobra.Command{
	Use:   "thumb <path>",
	Short: "Print a transcoded image URL for a thumb path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := client.ThumbURL(args[0], thumbWidth, thumbHeight)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), u)
		return nil
	},
}

func init() {
	thumbCmd.Flags().IntVar(&thumbWidth, "width", 200, "image width")
	thumbCmd.Flags().IntVar(&thumbHeight, "height", 301, "image height")
	rootCmd.AddCommand(thumbCmd)
}
