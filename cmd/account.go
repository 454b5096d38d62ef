package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/vibelist/internal/formatter"
	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/shared"
	"github.com/desertthunder/vibelist/internal/tasks"
	"github.com/urfave/cli/v3"
)

// TemplatesList prints the mood templates in sort order.
func (r *Runner) TemplatesList(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	templates, err := r.templates.List(ctx, map[string]any{"all": cmd.Bool("all")})
	if err != nil {
		return err
	}

	r.writePlain("%d templates:\n\n", len(templates))
	for _, t := range templates {
		name := t.Name()
		if !t.Active() {
			name += " (removed)"
		}
		r.writePlain("%-16s %s\n", name, t.Description())
		r.writePlain("%-16s %s\n", "", formatter.ParameterSummary(t.Parameters()))
	}
	return nil
}

// TemplatesAdd saves a named parameter vector.
func (r *Runner) TemplatesAdd(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: template name", shared.ErrMissingArgument)
	}
	if err := r.openStore(); err != nil {
		return err
	}

	params := models.MusicParameters{
		Energy:  cmd.Float("energy"),
		Valence: cmd.Float("valence"),
		Tempo:   cmd.Float("tempo"),
		Genres:  models.NormalizeGenres(cmd.StringSlice("genre")),
	}
	tmpl := models.NewMoodTemplate(name, cmd.String("description"), params, cmd.Int("order"))
	if err := r.templates.Create(ctx, tmpl); err != nil {
		return err
	}

	return r.writePlain("✓ Template %s saved: %s\n", name, formatter.ParameterSummary(params))
}

// TemplatesRemove deactivates a template by name.
func (r *Runner) TemplatesRemove(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	tmpl, err := r.templates.GetByName(ctx, cmd.StringArg("name"))
	if err != nil {
		return err
	}
	if err := r.templates.Delete(ctx, tmpl.ID()); err != nil {
		return err
	}
	return r.writePlain("✓ Template %s removed\n", tmpl.Name())
}

// PlanShow prints the account's subscription.
func (r *Runner) PlanShow(ctx context.Context, cmd *cli.Command) error {
	acct, err := r.currentAccount(ctx, cmd)
	if err != nil {
		return err
	}
	sub, err := r.subscriptions.Get(ctx, acct.user.ID())
	if err != nil {
		return err
	}

	r.writePlain("Plan:    %s\n", acct.plan)
	r.writePlain("Status:  %s\n", sub.Status)
	r.writePlain("Since:   %s\n", sub.StartDate.Local().Format(time.DateOnly))
	if sub.EndDate != nil {
		r.writePlain("Ends:    %s\n", sub.EndDate.Local().Format(time.DateOnly))
	}
	return nil
}

// PlanSet switches the account to the free or pro plan.
func (r *Runner) PlanSet(ctx context.Context, cmd *cli.Command) error {
	plan, err := models.ParsePlan(cmd.StringArg("plan"))
	if err != nil {
		return err
	}

	acct, err := r.currentAccount(ctx, cmd)
	if err != nil {
		return err
	}

	sub := &models.Subscription{
		UserID:    acct.user.ID(),
		Plan:      plan,
		Status:    models.StatusActive,
		StartDate: time.Now().UTC(),
	}
	if err := r.subscriptions.Upsert(ctx, sub); err != nil {
		return err
	}

	r.logger.Info("plan changed", "user_id", acct.user.ID(), "from", acct.plan, "to", plan)
	return r.writePlain("✓ Plan set to %s\n", plan)
}

// Quota prints this month's usage against the plan's limit.
func (r *Runner) Quota(ctx context.Context, cmd *cli.Command) error {
	acct, err := r.currentAccount(ctx, cmd)
	if err != nil {
		return err
	}

	guard := tasks.NewQuotaGuard(r.generations, r.config.Generation.FreeMonthlyLimit, r.location)
	usage, err := guard.Usage(ctx, acct.user.ID(), acct.plan)
	if err != nil {
		return err
	}

	r.writePlain("Period:    since %s\n", usage.PeriodStart.Format(time.DateOnly))
	r.writePlain("Used:      %d\n", usage.GenerationCount)
	if usage.Limit < 0 {
		return r.writePlain("Remaining: unlimited (%s plan)\n", acct.plan)
	}
	return r.writePlain("Remaining: %d of %d\n", usage.Remaining(), usage.Limit)
}
