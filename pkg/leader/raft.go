package leader

import (
	"context"

	"github.com/cuemby/steward/pkg/log"
	"github.com/rs/zerolog"
)

// RaftSource turns a raft leadership notification channel into edges.
// The channel is the one set as raft.Config.NotifyCh: raft sends true when
// this node becomes leader and false when it steps down.
type RaftSource struct {
	*broadcaster
	ch     <-chan bool
	logger zerolog.Logger
}

// NewRaftSource creates a source reading ch. Call Run to start delivering.
func NewRaftSource(ch <-chan bool) *RaftSource {
	return &RaftSource{
		broadcaster: newBroadcaster(),
		ch:          ch,
		logger:      log.WithComponent("leader"),
	}
}

// Run delivers edges until ctx is done or the channel is closed. A node
// that is leader when Run exits is reported as having lost the role.
func (s *RaftSource) Run(ctx context.Context) {
	defer s.apply(false)

	for {
		select {
		case <-ctx.Done():
			return
		case leader, ok := <-s.ch:
			if !ok {
				return
			}
			s.apply(leader)
		}
	}
}

func (s *RaftSource) apply(leader bool) {
	if !s.set(leader) {
		return
	}
	s.logger.Info().Bool("leader", leader).Msg("Raft leadership changed")
}
