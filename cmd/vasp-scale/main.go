package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dptru10/vasp-scaling-analysis/internal/batch"
	"github.com/dptru10/vasp-scaling-analysis/internal/config"
	"github.com/dptru10/vasp-scaling-analysis/internal/inputs"
	"github.com/dptru10/vasp-scaling-analysis/internal/observability"
	"github.com/dptru10/vasp-scaling-analysis/internal/orchestrator"
	"github.com/dptru10/vasp-scaling-analysis/internal/results"
)

func main() {
	sweepFile := flag.String("sweep", "", "YAML file overriding the default sweep axes")
	structureFile := flag.String("structure", "", "structure file path (default POSCAR in the working directory)")
	flag.Parse()

	cfg := config.FromEnv()
	if *structureFile != "" {
		cfg.StructureFile = *structureFile
	}
	if *sweepFile != "" {
		if err := cfg.LoadSweepFile(*sweepFile); err != nil {
			log.Fatalf("load sweep: %v", err)
		}
	}

	shutdownTrace, err := observability.InitTracingFromEnv("vasp-scale")
	if err != nil {
		log.Fatalf("init tracing: %v", err)
	}
	defer func() { _ = shutdownTrace(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := batch.NewGCPClient(ctx, cfg.ProjectID, cfg.Location)
	if err != nil {
		log.Fatalf("batch client: %v", err)
	}
	defer func() { _ = client.Close() }()

	store, err := results.NewMinIOStore(results.MinIOConfig{
		Endpoint:  cfg.BlobEndpoint,
		AccessKey: cfg.BlobAccessKey,
		SecretKey: cfg.BlobSecretKey,
		UseSSL:    cfg.BlobUseSSL,
		Bucket:    cfg.Bucket,
	})
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	orch := orchestrator.New(cfg, inputs.NewVaspWriter(cfg.StructureFile), client, store)
	if err := orch.Run(ctx); err != nil {
		log.Fatalf("scaling analysis failed: %v", err)
	}
	log.Printf("scaling analysis completed")
}
