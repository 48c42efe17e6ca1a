package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"storefront-automation/internal/config"
	"storefront-automation/internal/domain/model"
	"storefront-automation/internal/domain/ports/repository"
	pg "storefront-automation/internal/infra/db/postgres"
)

// Seeds the plans table with the built-in catalog so pricing can be tuned
// per environment without a deploy. Idempotent: existing rows are left alone.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	planRepo := pg.NewPlanRepo(pool)

	existing, err := planRepo.ListAll(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(existing))
		for _, p := range existing {
			fmt.Printf("  - %s (stores=%d, monthly=%d cents)\n", p.Name, p.IncludedStores, p.MonthlyPriceCents)
		}
		return
	}

	for _, p := range model.DefaultPlans() {
		if err := planRepo.Save(ctx, repository.NoTX, p); err != nil {
			log.Fatalf("seed plan %q: %v", p.ID, err)
		}
		fmt.Printf("seeded: %s (stores=%d, monthly=%d cents, extra=%d cents)\n",
			p.Name, p.IncludedStores, p.MonthlyPriceCents, p.ExtraStorePriceCents)
	}
	fmt.Println("Seeding complete.")
}
