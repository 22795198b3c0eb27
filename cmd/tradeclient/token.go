package main

import (
	"fmt"
	"io"
	"os"
)

// emitOperatorToken hands the token to the operator outside the log stream:
// into path with owner-only permissions, or onto w when path is empty.
func emitOperatorToken(path, token string, w io.Writer) error {
	if path == "" {
		_, err := fmt.Fprintf(w, "operator token: %s\n", token)
		return err
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write operator token: %w", err)
	}
	return nil
}
