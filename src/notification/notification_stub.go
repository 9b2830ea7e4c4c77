//go:build !windows

package notification

// showErrorDialog is a no-op off Windows; the failure is already on stderr and in the log.
func showErrorDialog(title, message string) {}
