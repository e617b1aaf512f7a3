package main

import (
	"os"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <link>...",
	Short: "Download sticker packs without prompting for links",
	Long: `Download the given sticker packs and exit. Each argument may be a
https://t.me/addstickers/ link, a tg://addstickers deep link or a bare set
name; comma separated lists are accepted too.

The bot token is still asked for when none is stored.`,
	Example: `  stickerdl get https://t.me/addstickers/ExamplePack
  stickerdl get ExamplePack,AnotherPack --output ./packs`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer guardTerminal(os.Stdin)()
		exitCode = app.session(os.Stdin, cmd.OutOrStdout()).RunLinks(cmd.Context(), args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
