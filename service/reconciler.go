package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/chainterm/gatekeeper/core"
	"github.com/chainterm/gatekeeper/ports"
)

// Reconciler cross-checks every persisted identity link's stored
// membership flag against what the platform actually reports, and
// corrects drift. Users are processed independently: one failing
// lookup never blocks the rest.
type Reconciler struct {
	store       ports.Store
	messenger   ports.Messenger
	events      ports.EventPublisher
	logger      *logrus.Logger
	concurrency int
}

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	Failures  int `json:"failures"`
}

// NewReconciler creates a reconciler with bounded fan-out.
func NewReconciler(store ports.Store, messenger ports.Messenger, events ports.EventPublisher, concurrency int, logger *logrus.Logger) *Reconciler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reconciler{
		store:       store,
		messenger:   messenger,
		events:      events,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Reconcile runs one pass over the linked-wallet index. The returned
// error covers only the index read; per-user failures are counted in
// the report and logged.
func (r *Reconciler) Reconcile(ctx context.Context) (ReconcileReport, error) {
	wallets, err := r.store.SetMembers(ctx, linkedIndexKey)
	if err != nil {
		return ReconcileReport{}, err
	}

	results := make([]reconcileOutcome, len(wallets))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)

	for i, walletID := range wallets {
		group.Go(func() error {
			results[i] = r.reconcileOne(groupCtx, walletID)
			return nil
		})
	}
	// Workers never return errors; Wait only orders the writes above.
	_ = group.Wait()

	var report ReconcileReport
	for _, outcome := range results {
		if outcome.skipped {
			continue
		}
		report.Processed++
		if outcome.updated {
			report.Updated++
		}
		if outcome.failed {
			report.Failures++
		}
	}

	r.logger.WithFields(logrus.Fields{
		"processed": report.Processed,
		"updated":   report.Updated,
		"failures":  report.Failures,
	}).Info("reconciliation pass completed")
	return report, nil
}

type reconcileOutcome struct {
	skipped bool
	updated bool
	failed  bool
}

func (r *Reconciler) reconcileOne(ctx context.Context, walletID string) reconcileOutcome {
	log := r.logger.WithField("wallet", walletID)

	payload, found, err := r.store.Get(ctx, linkPrefix+walletID)
	if err != nil {
		log.WithError(err).Warn("reconcile: link read failed")
		return reconcileOutcome{failed: true}
	}
	if !found {
		// Indexed but gone; nothing to reconcile.
		return reconcileOutcome{skipped: true}
	}

	var link core.IdentityLink
	if err := json.Unmarshal([]byte(payload), &link); err != nil {
		log.WithError(err).Warn("reconcile: undecodable link")
		return reconcileOutcome{failed: true}
	}
	if link.PlatformUserID == 0 {
		return reconcileOutcome{skipped: true}
	}

	status, err := r.messenger.MemberStatus(ctx, link.PlatformUserID)
	if err != nil {
		// Absence of evidence of membership, for a user previously
		// believed joined, is treated as evidence of departure.
		if link.GroupMember {
			log.WithError(err).Info("reconcile: member lookup failed, demoting")
			return r.writeMembership(ctx, link, false, log)
		}
		log.WithError(err).Debug("reconcile: member lookup failed, nothing to correct")
		return reconcileOutcome{failed: true}
	}

	observed := status.IsMember()
	if observed == link.GroupMember {
		return reconcileOutcome{}
	}

	log.WithFields(logrus.Fields{"stored": link.GroupMember, "observed": observed}).
		Info("reconcile: correcting membership drift")
	return r.writeMembership(ctx, link, observed, log)
}

func (r *Reconciler) writeMembership(ctx context.Context, link core.IdentityLink, member bool, log *logrus.Entry) reconcileOutcome {
	link.GroupMember = member
	link.LastUpdate = time.Now()

	payload, err := json.Marshal(link)
	if err != nil {
		log.WithError(err).Warn("reconcile: marshal failed")
		return reconcileOutcome{failed: true}
	}
	if err := r.store.Set(ctx, linkPrefix+link.WalletID, string(payload), 0); err != nil {
		log.WithError(err).Warn("reconcile: link write failed")
		return reconcileOutcome{failed: true}
	}

	if err := r.events.PublishMembershipChanged(ctx, link.WalletID, member); err != nil {
		log.WithError(err).Warn("failed to publish membership event")
	}
	return reconcileOutcome{updated: true}
}
