package identity

import (
	"context"

	"claimgate/internal/config"
	"claimgate/pkg/errors"
	"claimgate/pkg/models"
)

// Resolver supplies the sender and receiver identities stamped into every
// envelope header. Focal resources (patient, coverage, provider, insurer)
// arrive already resolved on the submission request; only the exchange
// parties need resolution here.
type Resolver interface {
	Sender() models.Identity
	Receiver(ctx context.Context, receiverID string) (models.Identity, error)
}

// StaticResolver derives the sender from configuration and treats any
// non-empty receiver id as pre-resolved.
type StaticResolver struct {
	sender models.Identity
}

func NewStaticResolver(cfg config.ExchangeConfig) *StaticResolver {
	return &StaticResolver{
		sender: models.Identity{
			System: cfg.SenderSystem,
			Value:  cfg.SenderID,
		},
	}
}

func (r *StaticResolver) Sender() models.Identity {
	return r.sender
}

func (r *StaticResolver) Receiver(ctx context.Context, receiverID string) (models.Identity, error) {
	if receiverID == "" {
		return models.Identity{}, errors.ErrGuard.WithMessage("receiver identity is required")
	}
	return models.Identity{System: r.sender.System, Value: receiverID}, nil
}
