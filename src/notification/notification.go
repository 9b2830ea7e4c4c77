package notification

import (
	"log"
)

const maxMessageLength = 1000

// ShowBlockingError reports a fatal failure to the user and waits for
// acknowledgement where the platform offers a dialog.
func ShowBlockingError(title, message string) {
	if len(message) > maxMessageLength {
		message = message[:maxMessageLength] + "..."
	}
	log.Printf("%s: %s", title, message)
	showErrorDialog(title, message)
}
