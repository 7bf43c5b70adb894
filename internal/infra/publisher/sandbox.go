package publisher

import (
	"context"
	"postqueue/internal/domain"
	"postqueue/internal/ports"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Sandbox answers synthetic accounts itself and forwards the rest.
type Sandbox struct {
	Next   ports.Publisher
	Prefix string
}

var _ ports.Publisher = Sandbox{}

func (s Sandbox) Publish(ctx context.Context, userID, contentID, accountID string) (domain.PublishResult, error) {
	if s.Prefix != "" && strings.HasPrefix(accountID, s.Prefix) {
		log.Ctx(ctx).Debug().Str("account_id", accountID).Msg("sandbox publish")
		return domain.PublishResult{Success: true, SocialPostID: "sandbox-" + uuid.NewString()}, nil
	}
	return s.Next.Publish(ctx, userID, contentID, accountID)
}
