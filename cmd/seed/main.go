// Command seed fills the database with plausible demo data: a service and
// medication catalog, patients, and visits with line items and partial
// payments. Intended for demos and local development, never production.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/dentaflow/clinic-platform/internal/catalog"
	appconfig "github.com/dentaflow/clinic-platform/internal/config"
	"github.com/dentaflow/clinic-platform/internal/patients"
	"github.com/dentaflow/clinic-platform/internal/visits"
	"github.com/dentaflow/clinic-platform/pkg/logging"
)

var defaultServices = []catalog.UpsertItemRequest{
	{Name: "Consultation", DefaultPriceCents: 20_00},
	{Name: "Cleaning", Description: "full mouth scaling and polish", DefaultPriceCents: 35_00},
	{Name: "Filling", Description: "composite", DefaultPriceCents: 45_00},
	{Name: "Extraction", DefaultPriceCents: 40_00},
	{Name: "Root Canal", Description: "per canal", DefaultPriceCents: 150_00},
	{Name: "Crown", Description: "porcelain fused to metal", DefaultPriceCents: 220_00},
	{Name: "X-Ray", Description: "periapical", DefaultPriceCents: 10_00},
	{Name: "Whitening", DefaultPriceCents: 120_00},
}

var defaultMedications = []catalog.UpsertItemRequest{
	{Name: "Amoxicillin 500mg", DefaultPriceCents: 8_00},
	{Name: "Ibuprofen 400mg", DefaultPriceCents: 5_00},
	{Name: "Metronidazole 500mg", DefaultPriceCents: 7_00},
	{Name: "Chlorhexidine Mouthwash", DefaultPriceCents: 6_00},
	{Name: "Paracetamol 500mg", DefaultPriceCents: 4_00},
}

var firstNames = []string{
	"Omar", "Lina", "Sami", "Rana", "Khaled", "Maya", "Yousef", "Dana",
	"Tariq", "Noor", "Hani", "Salma", "Fadi", "Layla", "Zaid", "Hala",
}

var lastNames = []string{
	"Haddad", "Khalil", "Odeh", "Saleh", "Nasser", "Mansour", "Awad", "Zaid",
	"Barakat", "Hamdan", "Qasem", "Sweidan",
}

var visitNotes = []string{
	"", "follow-up in two weeks", "sensitivity on cold", "post-op check",
	"recommended night guard", "gum inflammation noted",
}

func main() {
	patientCount := flag.Int("patients", 40, "number of patients to create")
	maxVisits := flag.Int("max-visits", 5, "maximum visits per patient")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	rng := rand.New(rand.NewSource(*seed))

	catalogRepo := catalog.NewPostgresRepository(pool)
	patientsRepo := patients.NewPostgresRepository(pool)
	visitsRepo := visits.NewPostgresRepository(pool)

	serviceIDs, err := seedCatalog(ctx, catalogRepo, catalog.KindService, defaultServices)
	if err != nil {
		logger.Error("failed to seed services", "error", err)
		os.Exit(1)
	}
	medicationIDs, err := seedCatalog(ctx, catalogRepo, catalog.KindMedication, defaultMedications)
	if err != nil {
		logger.Error("failed to seed medications", "error", err)
		os.Exit(1)
	}
	logger.Info("catalog seeded", "services", len(serviceIDs), "medications", len(medicationIDs))

	totalVisits := 0
	for i := 0; i < *patientCount; i++ {
		p, err := patientsRepo.Create(ctx, &patients.UpsertPatientRequest{
			Name:       pick(rng, firstNames) + " " + pick(rng, lastNames),
			FatherName: pick(rng, firstNames),
			Gender:     pick(rng, []string{"male", "female"}),
			Age:        5 + rng.Intn(70),
			Phone:      fmt.Sprintf("079%07d", rng.Intn(10_000_000)),
			Address:    "Amman",
		})
		if err != nil {
			logger.Error("failed to create patient", "error", err)
			os.Exit(1)
		}

		for v := 0; v < 1+rng.Intn(*maxVisits); v++ {
			req := randomVisit(rng, serviceIDs, medicationIDs)
			if _, err := visitsRepo.Create(ctx, p.ID, req); err != nil {
				logger.Error("failed to create visit", "patient_id", p.ID, "error", err)
				os.Exit(1)
			}
			totalVisits++
		}
	}

	logger.Info("seed complete", "patients", *patientCount, "visits", totalVisits)
}

func seedCatalog(ctx context.Context, repo catalog.Repository, kind catalog.Kind, items []catalog.UpsertItemRequest) ([]int64, error) {
	ids := make([]int64, 0, len(items))
	for i := range items {
		item, err := repo.Create(ctx, kind, &items[i])
		if err != nil {
			return nil, err
		}
		ids = append(ids, item.ID)
	}
	return ids, nil
}

func randomVisit(rng *rand.Rand, serviceIDs, medicationIDs []int64) *visits.CreateVisitRequest {
	req := &visits.CreateVisitRequest{
		VisitDate: time.Now().AddDate(0, 0, -rng.Intn(540)).Format("2006-01-02"),
		Notes:     pick(rng, visitNotes),
	}

	for s := 0; s < 1+rng.Intn(3); s++ {
		line := &visits.AddServiceLineRequest{ServiceID: pick(rng, serviceIDs)}
		if rng.Intn(2) == 0 {
			tooth := 1 + rng.Intn(32)
			line.ToothNumber = &tooth
		}
		req.Services = append(req.Services, line)
	}
	if rng.Intn(3) == 0 {
		req.Prescriptions = append(req.Prescriptions, &visits.AddPrescriptionLineRequest{
			MedicationID: pick(rng, medicationIDs),
			Quantity:     1 + rng.Intn(3),
		})
	}

	// Most visits are fully paid, some partially, a few not at all.
	switch rng.Intn(10) {
	case 0:
		req.PaidCents = 0
	case 1, 2:
		req.PaidCents = int64(rng.Intn(40_00))
	default:
		// Settle generously; the repository clamps due at zero.
		req.PaidCents = int64(100_00 + rng.Intn(300_00))
	}
	return req
}

func pick[T any](rng *rand.Rand, options []T) T {
	return options[rng.Intn(len(options))]
}
