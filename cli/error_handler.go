package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/inkwell-editor/inkwell/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool

	// OnAuthExpired runs before an AuthExpired error is reported, so the
	// session manager can tear down a credential the provider rejected.
	OnAuthExpired func()
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
	}
}

// Handle provides user-friendly error messages based on error type
func (h *ErrorHandler) Handle(err error) error {
	switch errors.GetCode(err) {
	case errors.ErrCodeAuthExpired:
		if h.OnAuthExpired != nil {
			h.OnAuthExpired()
		}
		fmt.Fprintf(os.Stderr, "❌ Your session has expired. Run 'inkwell login' to sign in again.\n")
		return err

	case errors.ErrCodeAuthFailed:
		fmt.Fprintf(os.Stderr, "❌ Sign-in failed: %v\n", err)
		return err

	case errors.ErrCodeNameConflict:
		if inkErr, ok := err.(*errors.InkError); ok {
			fmt.Fprintf(os.Stderr, "❌ A repository named '%s' already exists.\n", inkErr.Details["name"])
		}
		return err

	case errors.ErrCodeConflictDetected:
		if inkErr, ok := err.(*errors.InkError); ok {
			fmt.Fprintf(os.Stderr, "❌ '%s' was changed remotely since you loaded it.\n", inkErr.Details["path"])
			fmt.Fprintf(os.Stderr, "Reload to pick up the remote version, or save again with --force to overwrite it.\n")
		}
		return err

	case errors.ErrCodeRateLimited:
		if inkErr, ok := err.(*errors.InkError); ok {
			if reset, ok := inkErr.Details["reset"].(int64); ok && reset > 0 {
				fmt.Fprintf(os.Stderr, "❌ API rate limit exceeded. Try again after %s.\n",
					time.Unix(reset, 0).Format(time.Kitchen))
				return err
			}
		}
		fmt.Fprintf(os.Stderr, "❌ API rate limit exceeded. Try again in a few minutes.\n")
		return err

	case errors.ErrCodeSaveCancelled:
		fmt.Fprintf(os.Stderr, "Save cancelled.\n")
		return err

	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(os.Stderr, "❌ Configuration not found. Create an inkwell.yml or pass --config.\n")
		return err

	default:
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)

		if h.Verbose {
			if inkErr, ok := err.(*errors.InkError); ok {
				fmt.Fprintf(os.Stderr, "\nError details:\n%s\n", inkErr.ToJSON())
			}
		}
		return err
	}
}
