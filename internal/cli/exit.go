package cli

import "fmt"

// ExitError carries a non-zero exit code out of a command whose outcome
// was already reported. main exits with Code without printing anything.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}
