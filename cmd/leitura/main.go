package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/RamonDFerreira/leitura-agua-gas/internal/extraction"
	"github.com/RamonDFerreira/leitura-agua-gas/internal/measure"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Load .env if present; real environment variables win.
	_ = godotenv.Load()

	fs := ff.NewFlagSet("leitura")
	var (
		port    = fs.IntLong("port", 8080, "HTTP server port")
		baseURL = fs.StringLong("base-url", "http://localhost:8080", "Public base URL used to build image links")

		storeDriver = fs.StringLong("store", "bolt", "Reading store: 'bolt' or 'postgres'")
		dbPath      = fs.StringLong("db", "measures.db", "BoltDB file path")
		databaseURL = fs.StringLong("database-url", "", "Postgres connection URL (or set LEITURA_DATABASE_URL)")

		imageDriver = fs.StringLong("images", "local", "Image store: 'local' or 's3'")
		imagesPath  = fs.StringLong("images-path", "./images", "Local image directory")
		s3Endpoint  = fs.StringLong("s3-endpoint", "", "S3/MinIO endpoint")
		s3AccessKey = fs.StringLong("s3-access-key", "", "S3/MinIO access key")
		s3SecretKey = fs.StringLong("s3-secret-key", "", "S3/MinIO secret key")
		s3Bucket    = fs.StringLong("s3-bucket", "measure-images", "S3/MinIO bucket name")
		s3Region    = fs.StringLong("s3-region", "", "S3/MinIO region")
		s3UseSSL    = fs.BoolLong("s3-use-ssl", "Use TLS for the S3/MinIO endpoint")

		extractorType = fs.StringLong("extractor", "gemini", "Extractor type: 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-1.5-flash", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama vision model name")

		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("LEITURA"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx := context.Background()

	// Initialize reading store
	var store measure.Store
	var err error
	switch *storeDriver {
	case "bolt":
		slog.Info("Initializing BoltDB store...", "path", *dbPath)
		store, err = measure.NewBoltStore(*dbPath)
	case "postgres":
		url := *databaseURL
		if url == "" {
			url = os.Getenv("DATABASE_URL")
		}
		if url == "" {
			slog.Error("Postgres connection URL is required. Set --database-url or DATABASE_URL")
			os.Exit(1)
		}
		slog.Info("Initializing Postgres store...")
		store, err = measure.NewPostgresStore(ctx, url)
	default:
		slog.Error("Invalid store driver", "store", *storeDriver, "valid", "bolt or postgres")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize image store
	var images measure.ImageStore
	switch *imageDriver {
	case "local":
		slog.Info("Initializing local image store...", "path", *imagesPath)
		images, err = measure.NewLocalImageStore(*imagesPath)
	case "s3":
		slog.Info("Initializing S3 image store...", "endpoint", *s3Endpoint, "bucket", *s3Bucket)
		images, err = measure.NewS3ImageStore(ctx, measure.S3Config{
			Endpoint:  *s3Endpoint,
			AccessKey: *s3AccessKey,
			SecretKey: *s3SecretKey,
			Bucket:    *s3Bucket,
			Region:    *s3Region,
			UseSSL:    *s3UseSSL,
		})
	default:
		slog.Error("Invalid image store driver", "images", *imageDriver, "valid", "local or s3")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize image store", "error", err)
		os.Exit(1)
	}

	// Initialize extractor
	var extractor extraction.Extractor
	switch *extractorType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini extractor...", "model", *geminiModel)
		extractor, err = extraction.NewGemini(apiKey, *geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama extractor...", "url", *ollamaURL, "model", *ollamaModel)
		extractor, err = extraction.NewOllama(*ollamaURL, *ollamaModel)
	default:
		slog.Error("Invalid extractor type", "type", *extractorType, "valid", "gemini or ollama")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to initialize extractor", "error", err)
		os.Exit(1)
	}
	defer extractor.Close()

	// Initialize service and server
	service := measure.NewService(store, images, extractor, strings.TrimRight(*baseURL, "/"))
	server := measure.NewServer(service, measure.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	})

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
