// planctl is the operator tool for principal plans and scan credits: look a
// principal up by id or email, move it to another plan, or top up credits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"leafwise/internal/domain"
	"leafwise/internal/infra"
	"leafwise/internal/sqlinline"
)

type principalRow struct {
	ID         string
	Email      string
	Kind       string
	Plan       string
	Credits    int
	LoginBonus bool
}

func main() {
	var (
		idFlag      string
		emailFlag   string
		planFlag    string
		creditsFlag int
	)

	flag.StringVar(&idFlag, "id", "", "principal ID to update (UUID)")
	flag.StringVar(&emailFlag, "email", "", "principal email to update")
	flag.StringVar(&planFlag, "plan", "", "plan to assign (free, premium, pro); empty keeps the current plan")
	flag.IntVar(&creditsFlag, "grant-credits", 0, "scan credits to add (0 grants nothing)")
	flag.Parse()

	id := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(strings.ToLower(emailFlag))
	plan := domain.Plan(strings.TrimSpace(strings.ToLower(planFlag)))

	if id == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}
	if plan != "" && !domain.KnownPlan(plan) {
		exitWithError(fmt.Errorf("unsupported plan %q", plan))
	}
	if plan == "" && creditsFlag <= 0 {
		exitWithError(errors.New("nothing to do: provide -plan and/or a positive -grant-credits"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "planctl").Logger()
	runner := infra.NewSQLRunner(pool, logger)

	var p principalRow
	var scanErr error
	if id != "" {
		scanErr = scanPrincipal(runner.QueryRow(ctx, sqlinline.QAdminSelectPrincipalByID, id), &p)
	} else {
		scanErr = scanPrincipal(runner.QueryRow(ctx, sqlinline.QAdminSelectPrincipalByEmail, email), &p)
	}
	if scanErr != nil {
		exitWithError(fmt.Errorf("failed to load principal: %w", scanErr))
	}

	if plan != "" {
		row := runner.QueryRow(ctx, sqlinline.QSetPlan, p.ID, string(plan))
		if err := row.Scan(&p.ID, &p.Plan, &p.Credits, &p.LoginBonus); err != nil {
			exitWithError(fmt.Errorf("failed to set plan: %w", err))
		}
	}
	if creditsFlag > 0 {
		row := runner.QueryRow(ctx, sqlinline.QGrantScanCredits, p.ID, creditsFlag)
		if err := row.Scan(&p.Credits); err != nil {
			exitWithError(fmt.Errorf("failed to grant credits: %w", err))
		}
	}

	label := p.Email
	if label == "" {
		label = p.Kind
	}
	fmt.Printf("Principal %s (%s) plan=%s scan_credits=%d login_bonus=%v\n",
		p.ID, label, p.Plan, p.Credits, p.LoginBonus)
}

func scanPrincipal(row interface{ Scan(dest ...any) error }, p *principalRow) error {
	return row.Scan(&p.ID, &p.Email, &p.Kind, &p.Plan, &p.Credits, &p.LoginBonus)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
