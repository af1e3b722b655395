package peerlist

import (
	"context"

	"example.com/peerwire/lib/core/domain"
)

type PeerRepo interface {
	GetPeers(ctx context.Context) ([]domain.Host, error)
}
