package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"neovidya/internal/config"
	"neovidya/internal/database"
	"neovidya/internal/logger"
	"neovidya/internal/service"
	"neovidya/migrations"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	// Export flags
	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.<format>)")
	exportFormat := exportCmd.String("format", "json", "Output format: json (full backup) or xlsx (report)")
	exportConfig := exportCmd.String("config", "", "Path to a YAML config file")

	// Import flags
	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing data before import (WARNING: destructive)")
	importYes := importCmd.Bool("yes", false, "Skip the confirmation prompt for -clear")
	importConfig := importCmd.String("config", "", "Path to a YAML config file")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var configPath string
	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		configPath = *exportConfig
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		configPath = *importConfig
	default:
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(config.LogConfig{Level: cfg.Log.Level, Format: "console"})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	// Initialize database
	db, err := database.InitializeWithConfig(cfg.Database)
	if err != nil {
		zl.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()

	// Run migrations to ensure schema is up to date
	if _, err := db.RunMigrations(ctx, migrations.FS); err != nil {
		zl.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Create backup service
	backupService := service.NewBackupService(db, zl)

	switch os.Args[1] {
	case "export":
		if err := handleExport(ctx, zl, backupService, *exportOutput, *exportFormat); err != nil {
			zl.Fatal("Export failed", zap.Error(err))
		}
	case "import":
		if err := handleImport(ctx, zl, backupService, *importInput, *importClear, *importYes); err != nil {
			zl.Fatal("Import failed", zap.Error(err))
		}
	}
}

func handleExport(ctx context.Context, zl *zap.Logger, backupService *service.BackupService, outputPath, format string) error {
	format = strings.ToLower(format)
	if format != "json" && format != "xlsx" {
		return fmt.Errorf("unsupported format %q", format)
	}

	// Generate default filename if not provided
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("backup_%s.%s", timestamp, format)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	zl.Info("Exporting database", zap.String("output", outputPath), zap.String("format", format))
	if format == "xlsx" {
		err = backupService.ExportXLSX(ctx, f)
	} else {
		_, err = backupService.ExportJSON(ctx, f)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(outputPath)
		return err
	}

	// Get file size
	fileInfo, err := os.Stat(outputPath)
	if err == nil {
		zl.Info("Export complete", zap.String("size", fmt.Sprintf("%.2f MB", float64(fileInfo.Size())/1024/1024)))
	}
	return nil
}

func handleImport(ctx context.Context, zl *zap.Logger, backupService *service.BackupService, inputPath string, clearData, skipConfirm bool) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	if clearData && !skipConfirm {
		fmt.Print("WARNING: This will delete all existing data. Type 'yes' to confirm: ")
		confirmation, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(confirmation) != "yes" {
			zl.Info("Import cancelled")
			return nil
		}
	}

	zl.Info("Importing database", zap.String("input", inputPath), zap.Bool("clear", clearData))
	backup, err := backupService.ImportJSON(ctx, f, clearData)
	if err != nil {
		return err
	}

	zl.Info("Import complete",
		zap.Int("schools", len(backup.Schools)),
		zap.Int("users", len(backup.Users)),
		zap.Int("courses", len(backup.Courses)),
		zap.Int("progress", len(backup.Progress)),
	)
	return nil
}

func printUsage() {
	fmt.Println("NeoVidya Database Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export database to a JSON backup or XLSX report")
	fmt.Println("  backup import [options]    Import database from a JSON backup")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.<format>)")
	fmt.Println("  -format <fmt>     json or xlsx (default: json)")
	fmt.Println("  -config <file>    YAML config file")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Clear existing data before import (WARNING: destructive)")
	fmt.Println("  -yes              Do not ask for confirmation with -clear")
	fmt.Println("  -config <file>    YAML config file")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  backup export")
	fmt.Println("  backup export -format xlsx -output reports/progress.xlsx")
	fmt.Println("  backup import -input backup.json")
	fmt.Println("  backup import -input backup.json -clear")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  NEOVIDYA_DB_TYPE           sqlite, postgres or mysql (default: sqlite)")
	fmt.Println("  NEOVIDYA_DB_PATH           SQLite database path (default: ./neovidya.db)")
	fmt.Println("  NEOVIDYA_DB_URL            PostgreSQL or MySQL connection URL")
	fmt.Println("  NEOVIDYA_AUTH_JWT_SECRET   required by the shared config loader")
}
