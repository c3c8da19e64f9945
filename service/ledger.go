package service

import (
	"context"
	"fmt"

	"agora/core"
	"agora/effects"
	"agora/metrics"
	"go.uber.org/zap"
)

// Ledger applies reputation deltas from an injected catalog. Every change is
// one atomic increment dispatched as a best-effort side effect: persistence
// failures are logged and recorded but never reach the caller.
type Ledger struct {
	users      ReputationStorage
	catalog    core.ReputationCatalog
	dispatcher effects.Dispatcher
	logger     *zap.SugaredLogger
}

// NewLedger creates a ledger. A nil catalog uses the default table.
func NewLedger(users ReputationStorage, catalog core.ReputationCatalog, dispatcher effects.Dispatcher, logger *zap.SugaredLogger) *Ledger {
	if users == nil {
		panic("users storage is required")
	}
	if dispatcher == nil {
		panic("dispatcher is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if catalog == nil {
		catalog = core.DefaultReputationCatalog()
	}
	return &Ledger{
		users:      users,
		catalog:    catalog,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Catalog returns the point table in use
func (l *Ledger) Catalog() core.ReputationCatalog {
	return l.catalog
}

// Apply credits the net delta of actions to userID as a single increment.
// A zero net (unknown actions, or actions that cancel out) writes nothing.
func (l *Ledger) Apply(userID string, actions ...core.ReputationAction) {
	if userID == "" || len(actions) == 0 {
		return
	}
	delta := l.catalog.Net(actions...)
	if delta == 0 {
		l.logger.Debugw("Reputation change is zero, skipping",
			"user_id", userID,
			"actions", actions)
		return
	}

	l.dispatcher.Dispatch("reputation", func(ctx context.Context) error {
		if err := l.users.IncrementReputation(ctx, userID, delta); err != nil {
			return fmt.Errorf("failed to apply %d reputation to user %s: %w", delta, userID, err)
		}
		for _, a := range actions {
			metrics.ReputationApplied.WithLabelValues(string(a)).Inc()
		}
		l.logger.Debugw("Reputation applied",
			"user_id", userID,
			"delta", delta,
			"actions", actions)
		return nil
	})
}

// Credit applies a set of credits, merging entries for the same user into
// one increment.
func (l *Ledger) Credit(credits []core.Credit) {
	order := make([]string, 0, len(credits))
	byUser := make(map[string][]core.ReputationAction, len(credits))
	for _, c := range credits {
		if _, seen := byUser[c.UserID]; !seen {
			order = append(order, c.UserID)
		}
		byUser[c.UserID] = append(byUser[c.UserID], c.Action)
	}
	for _, userID := range order {
		l.Apply(userID, byUser[userID]...)
	}
}

// AwardBadge adds a badge label to a user, best-effort
func (l *Ledger) AwardBadge(userID, badge string) {
	if userID == "" || badge == "" {
		return
	}
	l.dispatcher.Dispatch("badge", func(ctx context.Context) error {
		if err := l.users.AddBadge(ctx, userID, badge); err != nil {
			return fmt.Errorf("failed to award badge %q to user %s: %w", badge, userID, err)
		}
		return nil
	})
}
