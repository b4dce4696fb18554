// Package daemon implements the scheduled reconciliation job: it scans
// open requests and closes the ones the package index already
// satisfies. One scan at a time; a slow scan makes the next tick skip
// rather than overlap.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/robfig/cron/v3"

	"github.com/aosc-dev/pakreq/internal/models"
	"github.com/aosc-dev/pakreq/internal/service"
	"github.com/aosc-dev/pakreq/pkg/packages"
)

const (
	notePackaged = "(BOT) This package has been packaged."
	noteUpdated  = "(BOT) This package has been updated to: %s"
	noteNotFound = "404 Package not found"
)

// Index is the package-index collaborator contract.
type Index interface {
	FindPackage(ctx context.Context, name string) (*packages.Package, error)
	SearchPackages(ctx context.Context, name string) ([]packages.Package, error)
}

type Daemon struct {
	svc    *service.Service
	index  Index
	logger *slog.Logger
}

func New(svc *service.Service, index Index, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	return &Daemon{svc: svc, index: index, logger: logger}
}

// Run scans once immediately, then on every interval tick until ctx is
// canceled. Blocks.
func (d *Daemon) Run(ctx context.Context, interval time.Duration) error {
	d.Scan(ctx)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{d.logger})))
	_, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		d.Scan(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule scan: %w", err)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	return nil
}

// Scan processes every open request independently; a failure on one is
// logged and never aborts the rest.
func (d *Daemon) Scan(ctx context.Context) {
	d.logger.Info("scan started")

	open, err := d.svc.OpenRequests(ctx)
	if err != nil {
		d.logger.Error("list open requests", "err", err)
		return
	}

	for _, req := range open {
		if err := d.process(ctx, req); err != nil {
			d.logger.Error("process request", "id", req.ID, "name", req.Name, "err", err)
		}
	}

	d.logger.Info("scan finished", "open", len(open))
}

func (d *Daemon) process(ctx context.Context, req models.Request) error {
	switch req.Type {
	case models.Pakreq:
		return d.processPakreq(ctx, req)
	case models.Updreq:
		return d.processUpdreq(ctx, req)
	default:
		// optreq is manual triage only.
		return nil
	}
}

func (d *Daemon) processPakreq(ctx context.Context, req models.Request) error {
	pkg, err := d.resolve(ctx, req.Name)
	if err != nil {
		return err
	}
	if pkg == nil {
		return nil
	}

	d.logger.Info("package now available, closing", "id", req.ID, "name", req.Name)
	return d.svc.AutoClose(ctx, req.ID, models.StatusDone, notePackaged)
}

// processUpdreq compares the version the index reports against the one
// recorded in the request's description.
func (d *Daemon) processUpdreq(ctx context.Context, req models.Request) error {
	pkg, err := d.resolve(ctx, req.Name)
	if err != nil {
		return err
	}
	if pkg == nil {
		d.logger.Info("package missing from index, rejecting", "id", req.ID, "name", req.Name)
		return d.svc.AutoClose(ctx, req.ID, models.StatusRejected, noteNotFound)
	}

	reported, err := semver.NewVersion(pkg.Version)
	if err != nil {
		d.logger.Warn("unparseable index version", "id", req.ID, "name", req.Name, "version", pkg.Version)
		return nil
	}
	recorded, err := semver.NewVersion(strings.TrimSpace(req.Description))
	if err != nil {
		// The description is free text; without a recorded version there
		// is nothing to compare, leave the request for manual triage.
		d.logger.Warn("unparseable recorded version", "id", req.ID, "description", req.Description)
		return nil
	}

	if reported.Compare(recorded) >= 0 {
		d.logger.Info("package updated, closing", "id", req.ID, "name", req.Name, "version", pkg.Version)
		return d.svc.AutoClose(ctx, req.ID, models.StatusDone, fmt.Sprintf(noteUpdated, pkg.Version))
	}

	return nil
}

// resolve finds a package by exact name, falling back to a search
// match on the name or its dash-stripped form.
func (d *Daemon) resolve(ctx context.Context, name string) (*packages.Package, error) {
	pkg, err := d.index.FindPackage(ctx, name)
	if err != nil {
		return nil, err
	}
	if pkg != nil {
		return pkg, nil
	}

	found, err := d.index.SearchPackages(ctx, name)
	if err != nil {
		return nil, err
	}

	stripped := strings.ReplaceAll(name, "-", "")
	for _, p := range found {
		if p.Name == name || p.Name == stripped {
			match := p
			return &match, nil
		}
	}

	return nil, nil
}

// cronLogger adapts slog to the cron.Logger interface used by the
// skip-if-still-running wrapper.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"err", err}, keysAndValues...)...)
}
