package email

import (
	"context"
)

type Service interface {
	Send(ctx context.Context, to, subject, body string) error
}
