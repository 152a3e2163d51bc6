package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/hibiken/asynq"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/identity"
)

var testNow = time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

var staffPrincipal = identity.Principal{UserID: "agent-1", Role: identity.RoleEmployee}

func newTestHandler() *Handler {
	return &Handler{
		Identity:       fakeIdentity{},
		SessionTTL:     8 * time.Hour,
		SendCheckDelay: time.Minute,
		Now:            func() time.Time { return testNow },
	}
}

// withPrincipal stands in for the auth middleware, which is wired in main
// and tested separately.
func withPrincipal(req *http.Request, principal identity.Principal) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), principalContextKey{}, principal))
}

type fakeIdentity struct {
	identity.Store
	canFn   func(ctx context.Context, role, module, action string) (bool, error)
	loginFn func(ctx context.Context, input identity.LoginInput, ttl time.Duration) (identity.LoginResult, error)
}

func (f fakeIdentity) Can(ctx context.Context, role, module, action string) (bool, error) {
	if f.canFn == nil {
		return true, nil
	}
	return f.canFn(ctx, role, module, action)
}

func (f fakeIdentity) Login(ctx context.Context, input identity.LoginInput, ttl time.Duration) (identity.LoginResult, error) {
	if f.loginFn == nil {
		return identity.LoginResult{}, identity.ErrInvalidCredentials
	}
	return f.loginFn(ctx, input, ttl)
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}
