package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteTokenGuide explains how to obtain a bot token from @BotFather
func WriteTokenGuide(w io.Writer) {
	rule := strings.Repeat("-", 60)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "A Telegram bot token is needed to read sticker sets.")
	fmt.Fprintln(w, "  1. Open a chat with @BotFather in Telegram")
	fmt.Fprintln(w, "  2. Send /newbot and follow the prompts")
	fmt.Fprintln(w, "  3. Copy the token it replies with (looks like 123456789:AAE...)")
	fmt.Fprintln(w, "The token is stored locally and reused on the next run.")
	fmt.Fprintln(w, rule)
}
