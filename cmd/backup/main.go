package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"flashkids/internal/backup"
	"flashkids/internal/config"
	"flashkids/internal/database"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	// Export flags
	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	exportBucket := exportCmd.String("s3-bucket", "", "Also upload the backup to this S3 bucket")
	exportKey := exportCmd.String("s3-key", "", "S3 object key for the upload (default: backup file name)")

	// Import flags
	importInput := importCmd.String("input", "", "Input file path (required unless -s3-bucket is set)")
	importBucket := importCmd.String("s3-bucket", "", "Download the backup from this S3 bucket instead of a local file")
	importKey := importCmd.String("s3-key", "", "S3 object key to download (required with -s3-bucket)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	svc := backup.NewService(db, logger)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(svc, *exportOutput, *exportBucket, *exportKey)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" && *importBucket == "" {
			fmt.Println("Error: -input or -s3-bucket is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(svc, *importInput, *importBucket, *importKey)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(svc *backup.Service, outputPath, bucket, key string) {
	// Generate default filename if not provided
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("backup_%s.json", timestamp)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	log.Printf("Exporting to: %s", outputPath)
	if err := svc.Export(outputPath); err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	fileInfo, _ := os.Stat(outputPath)
	log.Printf("Export complete! File size: %.2f KB", float64(fileInfo.Size())/1024)

	if bucket != "" {
		if key == "" {
			key = filepath.Base(outputPath)
		}
		if err := uploadToS3(context.Background(), bucket, key, outputPath); err != nil {
			log.Fatalf("S3 upload failed: %v", err)
		}
		log.Printf("Uploaded to s3://%s/%s", bucket, key)
	}
}

func handleImport(svc *backup.Service, inputPath, bucket, key string) {
	if bucket != "" {
		if key == "" {
			fmt.Println("Error: -s3-key is required with -s3-bucket")
			os.Exit(1)
		}
		tmp, err := downloadFromS3(context.Background(), bucket, key)
		if err != nil {
			log.Fatalf("S3 download failed: %v", err)
		}
		defer os.Remove(tmp)
		inputPath = tmp
		log.Printf("Downloaded s3://%s/%s", bucket, key)
	}

	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		log.Fatalf("Input file does not exist: %s", inputPath)
	}

	log.Printf("Importing from: %s", inputPath)
	if err := svc.Import(inputPath); err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	log.Println("Import complete!")
}

func uploadToS3(ctx context.Context, bucket, key, path string) error {
	client, err := s3Client(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer file.Close()

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("application/json"),
	})
	return err
}

func downloadFromS3(ctx context.Context, bucket, key string) (string, error) {
	client, err := s3Client(ctx)
	if err != nil {
		return "", err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", err
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp("", "flashkids-backup-*.json")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, out.Body); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write downloaded backup: %w", err)
	}
	return tmp.Name(), nil
}

func s3Client(ctx context.Context) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

func printUsage() {
	fmt.Println("FlashKids Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export app data to a JSON file")
	fmt.Println("  backup import [options]    Merge app data from a JSON file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>      Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println("  -s3-bucket <name>   Also upload the backup to this S3 bucket")
	fmt.Println("  -s3-key <key>       S3 object key for the upload")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>       Input file path")
	fmt.Println("  -s3-bucket <name>   Download the backup from this S3 bucket")
	fmt.Println("  -s3-key <key>       S3 object key to download")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_TYPE    Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH    SQLite database path (default: ./flashkids.db)")
	fmt.Println("  DB_URL     PostgreSQL or MySQL connection URL")
}
