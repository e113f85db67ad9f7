package driven

import "context"

// CommandRunner executes an external tool and returns its stdout.
// Extraction shells out to poppler and tesseract through this port so
// tests can substitute canned output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
