// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package mailer

import (
	"context"
	"fmt"
)

// Disabled is a mailer that fails every send. It is wired when no SMTP
// relay is configured, so reset requests fail cleanly and roll back
// instead of persisting tokens nobody can receive.
type Disabled struct{}

// SendPasswordReset always fails.
func (Disabled) SendPasswordReset(_ context.Context, _, _ string) error {
	return fmt.Errorf("mail delivery is not configured")
}
