package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jpsistemas/jp-cobrancas/internal/tenant"
)

type tenantLister interface {
	ListTenants(ctx context.Context) ([]string, error)
}

type statusSyncer interface {
	SyncStatuses(ctx context.Context) (int, error)
}

type agingRefresher interface {
	RefreshAging(ctx context.Context) (int, error)
}

// dailyJob persists derived loan statuses and refreshes charge aging for
// every tenant database on the server.
type dailyJob struct {
	tenants tenantLister
	loans   statusSyncer
	charges agingRefresher
	log     logrus.FieldLogger
}

// Run processes each tenant in turn. A failing tenant is logged and skipped;
// the returned count is the number of tenants that completed.
func (j *dailyJob) Run(ctx context.Context) int {
	start := time.Now()

	names, err := j.tenants.ListTenants(ctx)
	if err != nil {
		j.log.WithError(err).Error("Unable to list tenant databases")
		return 0
	}

	done := 0
	for _, name := range names {
		entry := j.log.WithField("database", name)
		tctx := tenant.NewContext(ctx, tenant.Tenant{Database: name})

		synced, err := j.loans.SyncStatuses(tctx)
		if err != nil {
			entry.WithError(err).Error("Loan status sync failed")
			continue
		}
		aged, err := j.charges.RefreshAging(tctx)
		if err != nil {
			entry.WithError(err).Error("Charge aging refresh failed")
			continue
		}

		entry.WithFields(logrus.Fields{
			"loans_synced":    synced,
			"charges_updated": aged,
		}).Info("Tenant processed")
		done++
	}

	j.log.WithFields(logrus.Fields{
		"tenants":  len(names),
		"ok":       done,
		"duration": time.Since(start).String(),
	}).Info("Daily job finished")
	return done
}
