package outbound

import "context"

// Mailer is the external mail-dispatch collaborator. From the auth
// subsystem's perspective sends are fire-and-forget: a failure surfaces
// as an error but is never retried here.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
