package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/ikkim/traceability-backend/config"
	"github.com/ikkim/traceability-backend/internal/app/repository"
	"github.com/ikkim/traceability-backend/internal/app/service"
	"github.com/ikkim/traceability-backend/internal/db"
	"github.com/ikkim/traceability-backend/internal/ingest"
	"github.com/ikkim/traceability-backend/pkg/logger"
)

func main() {
	kind := flag.String("kind", "codes", "import kind: codes (code,dark_code) or channels (code,sku,distributor)")
	importID := flag.String("id", "", "import id used in logs (default: random uuid)")
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <file.csv|file.xlsx>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	filePath := flag.Arg(0)

	if *kind != string(service.ImportKindCodes) && *kind != string(service.ImportKindChannels) {
		log.Fatalf("Unknown import kind %q", *kind)
	}
	if *importID == "" {
		*importID = uuid.New().String()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.Initialize(logger.Config{Level: "info", Format: "console", EnableColor: true})

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(db.GetDB()); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	fmt.Printf("Importing %s from %s (import id %s)\n", *kind, filePath, *importID)
	if !*yes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	file, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open file:", err)
	}
	defer file.Close()

	src, err := ingest.Open(filePath, file)
	if err != nil {
		log.Fatal("Failed to read file:", err)
	}
	defer src.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := repository.NewStore(db.NewGateway(db.GetDB()))
	importService := service.NewImportService(store, service.ImportOptions{
		ChunkSize:      cfg.Import.ChunkSize,
		ChunkPacing:    cfg.Import.ChunkPacing,
		ErrorSampleCap: cfg.Import.ErrorSampleCap,
	}, nil, nil)

	var summary *service.ImportSummary
	if *kind == string(service.ImportKindCodes) {
		summary, err = importService.ImportCodes(ctx, *importID, src)
	} else {
		summary, err = importService.ImportChannels(ctx, *importID, src)
	}
	if err != nil {
		var rejected *service.RejectedInputError
		if errors.As(err, &rejected) {
			fmt.Println(rejected.Message)
			for _, e := range rejected.Errors {
				fmt.Println("  -", e)
			}
			os.Exit(1)
		}
		log.Fatal("Import failed:", err)
	}

	fmt.Println(summary.Message)
	fmt.Printf("Total: %d, succeeded: %d, failed: %d\n", summary.TotalCount, summary.SuccessCount, summary.ErrorCount)
	for _, e := range summary.Errors {
		fmt.Println("  -", e)
	}
	if summary.Cancelled {
		fmt.Println("Import interrupted; committed chunks were kept.")
	}
	if !summary.Success {
		os.Exit(1)
	}
}
