package orgs

import (
	"context"

	"github.com/platinummonkey/tenancy/pkg/auth"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

// ActorLoader resolves an authenticated user id into an actor with their
// relations, the input of every permission check.
type ActorLoader struct {
	users     storage.UserRepository
	relations storage.RelationRepository
}

func NewActorLoader(users storage.UserRepository, relations storage.RelationRepository) *ActorLoader {
	return &ActorLoader{users: users, relations: relations}
}

// Require fails with NotFound when the user no longer exists
func (l *ActorLoader) Require(ctx context.Context, userID string) error {
	_, err := l.users.Get(ctx, userID)
	return err
}

// Load returns the user together with every relation they hold
func (l *ActorLoader) Load(ctx context.Context, userID string) (auth.Actor, error) {
	if err := l.Require(ctx, userID); err != nil {
		return auth.Actor{}, err
	}
	relations, err := l.relations.ListByUser(ctx, userID)
	if err != nil {
		return auth.Actor{}, err
	}
	return auth.Actor{UserID: userID, Relations: relations}, nil
}
