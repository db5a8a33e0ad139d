package gitauth

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

// AnonymousSource elects unauthenticated access. It resolves to a nil
// credential, the conventional "proceed without auth" value, and is only
// eligible when the server advertises default access, so it never shadows
// real authentication.
type AnonymousSource struct{}

// NewAnonymousSource creates the anonymous source.
func NewAnonymousSource() *AnonymousSource {
	return &AnonymousSource{}
}

// Name implements Source.
func (s *AnonymousSource) Name() string { return "anonymous" }

// Methods implements Source.
func (s *AnonymousSource) Methods() Methods { return MethodDefault }

// MaxAttempts implements Source.
func (s *AnonymousSource) MaxAttempts() int { return 1 }

// Resolve implements Source.
//
//nolint:ireturn // credential callbacks traffic in transport.AuthMethod
func (s *AnonymousSource) Resolve(ctx context.Context, _ *Request) (transport.AuthMethod, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}
