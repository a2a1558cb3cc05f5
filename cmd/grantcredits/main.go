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

	"fotopro/internal/billing"
	"fotopro/internal/db"
	"fotopro/internal/domain"
)

// Operator tool: grant a plan's credit pack to a user, or top up the current
// subscription, without going through Stripe.
func main() {
	var (
		idFlag      string
		emailFlag   string
		priceFlag   string
		creditsFlag int
	)

	flag.StringVar(&idFlag, "id", "", "user ID to credit (UUID)")
	flag.StringVar(&emailFlag, "email", "", "user email to credit")
	flag.StringVar(&priceFlag, "price", "", "plan price id to grant as a new subscription")
	flag.IntVar(&creditsFlag, "credits", 0, "credit delta to apply to the current subscription")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(emailFlag)
	priceID := strings.TrimSpace(priceFlag)

	if userID == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}
	if priceID == "" && creditsFlag == 0 {
		exitWithError(errors.New("either -price or -credits must be provided"))
	}
	if priceID != "" {
		if _, ok := billing.CreditsForPrice(priceID); !ok {
			exitWithError(fmt.Errorf("unknown price %q (known: %s)", priceID, strings.Join(billing.KnownPrices(), ", ")))
		}
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

	queries := db.New(pool)

	var user domain.User
	if userID != "" {
		user, err = queries.GetUserByID(ctx, userID)
	} else {
		user, err = queries.GetUserByEmail(ctx, email)
	}
	if err != nil {
		exitWithError(fmt.Errorf("failed to load user: %w", err))
	}

	if priceID != "" {
		credits, _ := billing.CreditsForPrice(priceID)
		subID, err := queries.CreateSubscription(ctx, db.CreateSubscriptionParams{
			UserID:    user.ID,
			PriceID:   priceID,
			Credits:   credits,
			PeriodEnd: time.Now().Add(30 * 24 * time.Hour),
		})
		if err != nil {
			exitWithError(fmt.Errorf("failed to create subscription: %w", err))
		}
		fmt.Printf("User %s (%s) granted %d credits (subscription %s, price %s)\n",
			user.ID, user.Email, credits, subID, priceID)
		return
	}

	sub, err := queries.CurrentSubscription(ctx, user.ID)
	if err != nil {
		exitWithError(fmt.Errorf("failed to load current subscription: %w", err))
	}
	remaining, err := queries.AdjustSubscriptionCredits(ctx, sub.ID, creditsFlag)
	if err != nil {
		exitWithError(fmt.Errorf("failed to adjust credits: %w", err))
	}
	fmt.Printf("User %s (%s) subscription %s adjusted by %d, remaining %d\n",
		user.ID, user.Email, sub.ID, creditsFlag, remaining)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
