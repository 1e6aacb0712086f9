package middleware

import (
	"context"

	"github.com/shota3227/ludi/pkg/enums"
)

type contextKey string

const ctxActor contextKey = "actor"

// Actor is the authenticated caller. IDs stay in string form as they came
// off the token; controllers parse what they need.
type Actor struct {
	UserID  string
	Role    enums.UserRole
	StoreID string
}

// WithActor stores the caller on ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFromContext returns the caller, or a zero Actor for anonymous requests.
func ActorFromContext(ctx context.Context) Actor {
	if ctx == nil {
		return Actor{}
	}
	actor, _ := ctx.Value(ctxActor).(Actor)
	return actor
}

func UserIDFromContext(ctx context.Context) string {
	return ActorFromContext(ctx).UserID
}

func RoleFromContext(ctx context.Context) string {
	return string(ActorFromContext(ctx).Role)
}

func StoreIDFromContext(ctx context.Context) string {
	return ActorFromContext(ctx).StoreID
}

// WithUserID sets the caller's user id, keeping any role or store already set.
func WithUserID(ctx context.Context, userID string) context.Context {
	actor := ActorFromContext(ctx)
	actor.UserID = userID
	return WithActor(ctx, actor)
}

// WithRole sets the caller's role.
func WithRole(ctx context.Context, role enums.UserRole) context.Context {
	actor := ActorFromContext(ctx)
	actor.Role = role
	return WithActor(ctx, actor)
}

// WithStoreID sets the caller's primary store.
func WithStoreID(ctx context.Context, storeID string) context.Context {
	actor := ActorFromContext(ctx)
	actor.StoreID = storeID
	return WithActor(ctx, actor)
}
