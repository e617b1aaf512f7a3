package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name=stickerdl", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("stickerdl").Show($toast)
	`, xmlEscape(title), xmlEscape(message))

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

func xmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}

// Notifier sends desktop notifications when enabled. Failures are ignored.
type Notifier struct {
	sender NotificationSender
}

// NewNotifier creates a Notifier for the current platform, or a silent one
// when enabled is false
func NewNotifier(enabled bool) *Notifier {
	if !enabled {
		return &Notifier{}
	}

	var sender NotificationSender
	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}
	return &Notifier{sender: sender}
}

// NewNotifierWithSender creates a Notifier around a custom sender
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// Enabled reports whether notifications will be sent
func (n *Notifier) Enabled() bool {
	return n != nil && n.sender != nil
}

// Notify sends a desktop notification
func (n *Notifier) Notify(title, message string) {
	if !n.Enabled() {
		return
	}
	_ = n.sender.Send(title, message)
}
