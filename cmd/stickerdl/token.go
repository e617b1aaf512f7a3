package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"stickerdl/pkg/auth"
	"stickerdl/pkg/session"
	"stickerdl/pkg/ui"
)

var skipVerify bool

// tokenCmd groups the bot token commands
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the stored bot token",
	Long: `Manage the Telegram bot token used to read sticker sets.

The token is looked up in STICKERDL_BOT_TOKEN or TELEGRAM_BOT_TOKEN first,
then in the configured store:
  - file       plaintext JSON file, mode 0600 (default)
  - keyring    system keychain, falling back to the file
  - encrypted  AES-256-GCM file keyed by STICKERDL_PASSPHRASE`,
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store a bot token",
	Long: `Store a bot token. Without an argument the token is read from the
terminal without echo. The token is checked with getMe before it is saved
unless --no-verify is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTokenSet,
}

var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored token, masked",
	Args:  cobra.NoArgs,
	RunE:  runTokenShow,
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the stored token",
	Args:  cobra.NoArgs,
	RunE:  runTokenClear,
}

var tokenVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the stored token against the Bot API",
	Args:  cobra.NoArgs,
	RunE:  runTokenVerify,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenShowCmd)
	tokenCmd.AddCommand(tokenClearCmd)
	tokenCmd.AddCommand(tokenVerifyCmd)

	tokenSetCmd.Flags().BoolVar(&skipVerify, "no-verify", false, "save without calling getMe")
}

func runTokenSet(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	printer := ui.NewPrinter(cmd.OutOrStdout(), a.cfg.UI.Color)

	var token string
	if len(args) == 1 {
		token = strings.TrimSpace(args[0])
	} else {
		auth.WriteTokenGuide(cmd.OutOrStdout())
		fmt.Fprint(cmd.OutOrStdout(), printer.Cyan("Bot token: "))
		defer guardTerminal(os.Stdin)()
		read := secretReader(os.Stdin, cmd.OutOrStdout())
		if read == nil {
			r := bufio.NewReader(os.Stdin)
			read = func() (string, error) { return r.ReadString('\n') }
		}
		token, err = readContext(cmd.Context(), read)
		if err != nil && token == "" {
			return fmt.Errorf("failed to read token: %w", err)
		}
		token = strings.TrimSpace(token)
	}

	if err := auth.ValidateToken(token); err != nil {
		return err
	}

	if !skipVerify {
		client, err := session.TelegramClientFactory(&a.cfg.Telegram, a.log)(token)
		if err != nil {
			return err
		}
		printer.PrintInfo("Bot", "@"+client.Username())
	}

	store, err := a.creds.Save(token)
	if err != nil {
		return err
	}
	printer.PrintSuccess("Bot token saved (%s)", store)
	return nil
}

func runTokenShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	printer := ui.NewPrinter(cmd.OutOrStdout(), a.cfg.UI.Color)

	token, source, err := a.creds.Load()
	if errors.Is(err, auth.ErrTokenNotFound) {
		printer.PrintWarning("No bot token stored. Run 'stickerdl token set' to add one.")
		return nil
	}
	if err != nil {
		return err
	}

	printer.PrintInfo("Token", auth.MaskToken(token))
	printer.PrintInfo("Source", source)
	printer.PrintInfo("Lookup order", strings.Join(a.creds.StoreNames(), ", "))
	return nil
}

func runTokenClear(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	if err := a.creds.Delete(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	ui.NewPrinter(cmd.OutOrStdout(), a.cfg.UI.Color).PrintSuccess("Stored bot token removed")
	return nil
}

func runTokenVerify(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	printer := ui.NewPrinter(cmd.OutOrStdout(), a.cfg.UI.Color)

	token, source, err := a.creds.Load()
	if err != nil {
		return err
	}

	client, err := session.TelegramClientFactory(&a.cfg.Telegram, a.log)(token)
	if err != nil {
		return err
	}
	printer.PrintSuccess("Token from %s is valid", source)
	printer.PrintInfo("Bot", "@"+client.Username())
	return nil
}

// readContext runs read until it returns or ctx is cancelled
func readContext(ctx context.Context, read func() (string, error)) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := read()
		ch <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}
