package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"swick/internal/api"
	"swick/internal/database"
	"swick/internal/dispatch"
	"swick/internal/journal"
	"swick/internal/messaging"
	"swick/internal/metrics"
	"swick/internal/payment"
	"swick/internal/realtime"
	"swick/internal/session"
	"swick/internal/tip"
	"swick/internal/workflow"
)

func (a *app) openDB(ctx context.Context) (*database.DB, error) {
	db, err := database.New(ctx, a.cfg, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func (a *app) newSession(db *database.DB) (*session.Session, error) {
	role, err := session.ParseRole(a.cfg.Session.Role)
	if err != nil {
		return nil, err
	}
	return session.New(role, session.NewPostgresStore(db, a.cfg.Session.Profile), a.log)
}

func (a *app) apiClient(sess *session.Session) *api.Client {
	return api.NewClient(a.cfg.API.BaseURL, a.cfg.API.Timeout, sess, a.log)
}

// signedIn opens the database, restores the stored session and returns an API client for it
func (a *app) signedIn(ctx context.Context) (*database.DB, *session.Session, *api.Client, error) {
	db, err := a.openDB(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	sess, err := a.newSession(db)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	client := a.apiClient(sess)
	if _, err := sess.Restore(ctx, client); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("not signed in: %w", err)
	}
	return db, sess, client, nil
}

func (a *app) tipPolicy() tip.Policy {
	return tip.Policy{Low: a.cfg.Tips.Low, Mid: a.cfg.Tips.Mid, High: a.cfg.Tips.High}
}

func (a *app) newWorkflow(db *database.DB, sess *session.Session, client *api.Client, reg prometheus.Registerer) *workflow.Workflow {
	gateway := payment.NewHTTPGateway(
		a.cfg.Payment.GatewayURL,
		a.cfg.Payment.APIKey,
		a.cfg.Payment.Currency,
		&http.Client{Timeout: a.cfg.API.Timeout},
		a.log,
	)
	return workflow.New(sess, a.cfg.Payment.MinCharge, workflow.Deps{
		Gateway: gateway,
		Orders:  client,
		Journal: journal.NewPostgres(db, a.log),
		Metrics: metrics.NewWorkflowMetrics(reg),
		Logger:  a.log,
	})
}

// realtimeClient connects to the broker; handlers are marshalled onto loop
func (a *app) realtimeClient(loop *dispatch.Loop) (*messaging.Connection, *realtime.Client, error) {
	conn, err := messaging.New(a.cfg, a.log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize messaging: %w", err)
	}
	return conn, realtime.NewClient(conn, loop, a.log), nil
}
