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

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/beaconhq/beacon/internal/models"
	"github.com/beaconhq/beacon/internal/types"
	cfgPkg "github.com/beaconhq/beacon/pkg/config"
	"github.com/beaconhq/beacon/pkg/embed"
	"github.com/beaconhq/beacon/pkg/extractor"
	"github.com/beaconhq/beacon/pkg/pipeline"
	"github.com/beaconhq/beacon/pkg/store"
	"github.com/beaconhq/beacon/server"
)

type Flags struct {
	ConfigPath string
	IngestPath string
	Serve      bool
}

func main() {
	// Best effort; credentials usually live in the environment already.
	_ = godotenv.Load()

	flags, config := parseFlags()

	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		os.Exit(1)
	}

	if err := run(flags, config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() (Flags, *cfgPkg.Config) {
	var flags Flags
	var dbURL, embeddingURL, provider, model, table string
	var vectorDim, topK int

	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&flags.IngestPath, "ingest", "", "File or glob of documents to ingest")
	flag.BoolVar(&flags.Serve, "serve", false, "Run the HTTP API server")
	flag.StringVar(&dbURL, "db-url", "", "PostgreSQL connection string")
	flag.StringVar(&embeddingURL, "embedding-url", "", "Embedding service base URL")
	flag.StringVar(&provider, "provider", "", "Embedding provider (openai or ollama)")
	flag.StringVar(&model, "model", "", "Embedding model name")
	flag.StringVar(&table, "table", "", "PostgreSQL table name")
	flag.IntVar(&vectorDim, "vector-dim", 0, "Vector dimension")
	flag.IntVar(&topK, "top-k", 0, "Number of search results")
	flag.Parse()

	config, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		log.Fatal(err)
	}

	// Command line flags override the config file.
	if dbURL != "" {
		config.Database.URL = dbURL
	}
	if embeddingURL != "" {
		config.Embedding.BaseURL = embeddingURL
	}
	if provider != "" {
		config.Embedding.Provider = provider
	}
	if model != "" {
		config.Embedding.Model = model
	}
	if table != "" {
		config.Database.TableName = table
	}
	if vectorDim != 0 {
		config.Database.VectorDim = vectorDim
	}
	if topK != 0 {
		config.Search.TopK = topK
	}

	return flags, config
}

func newEmbedder(config *cfgPkg.Config) (types.Embedder, error) {
	maxChars := config.Ingest.MaxChars
	switch config.Embedding.Provider {
	case "ollama":
		return embed.NewOllama(embed.OllamaConfig{
			BaseURL:   config.Embedding.BaseURL,
			Model:     config.Embedding.Model,
			MaxChars:  maxChars,
			RateLimit: config.Embedding.RateLimit,
		})
	default:
		return embed.NewOpenAI(embed.OpenAIConfig{
			APIKey:    os.Getenv("OPENAI_API_KEY"),
			BaseURL:   config.Embedding.BaseURL,
			Model:     config.Embedding.Model,
			MaxChars:  maxChars,
			RateLimit: config.Embedding.RateLimit,
			Timeout:   time.Duration(config.Embedding.TimeoutMS) * time.Millisecond,
		}), nil
	}
}

func run(flags Flags, config *cfgPkg.Config) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	embedder, err := newEmbedder(config)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	index, err := store.NewWithConfig(ctx, store.VectorIndexConfig{
		ConnString: config.Database.URL,
		TableName:  config.Database.TableName,
		VectorDim:  config.Database.VectorDim,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize vector index: %v", err)
	}
	defer index.Close()

	if err := index.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure index schema: %v", err)
	}

	retryConfig := pipeline.RetryConfig{
		Attempts:  config.Ingest.RetryAttempts,
		BaseDelay: time.Duration(config.Ingest.RetryBaseDelayMS) * time.Millisecond,
	}

	ingestor := pipeline.NewIngestion(extractor.New(), embedder, index, pipeline.IngestionConfig{
		MaxChars: config.Ingest.MaxChars,
		Retry:    retryConfig,
	}, logger)

	querier := pipeline.NewQuery(embedder, index, pipeline.QueryConfig{
		TopK:  config.Search.TopK,
		Retry: retryConfig,
	}, logger)

	if flags.IngestPath != "" {
		if err := ingestFiles(ctx, ingestor, flags.IngestPath); err != nil {
			return err
		}
	}

	if flags.Serve {
		return server.New(ingestor, querier, logger).Run(":" + config.Server.Port)
	}

	if flags.IngestPath != "" {
		return nil
	}

	return queryLoop(ctx, querier)
}

func ingestFiles(ctx context.Context, ingestor *pipeline.Ingestion, pattern string) error {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("bad ingest pattern: %v", err)
	}
	if len(matches) == 0 {
		matches = []string{pattern}
	}

	color.Blue("\nIngesting %d document(s)\n", len(matches))
	bar := progressbar.NewOptions(len(matches),
		progressbar.OptionSetDescription(color.BlueString("Indexing documents...")),
		progressbar.OptionShowCount(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)

	var failed int
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			color.Red("\n%s: %v", path, err)
			failed++
			bar.Add(1)
			continue
		}

		doc := models.Document{
			ID:          path,
			ContentType: strings.TrimPrefix(filepath.Ext(path), "."),
			Data:        data,
		}

		// A failed document never blocks the rest of the batch.
		if _, err := ingestor.Ingest(ctx, doc); err != nil {
			color.Red("\n%s: %v", path, err)
			failed++
		}
		bar.Add(1)
	}
	bar.Finish()

	if failed > 0 {
		color.Yellow("\n%d of %d documents failed\n", failed, len(matches))
	} else {
		color.Green("\n✓ Indexed %d documents\n", len(matches))
	}
	return nil
}

func queryLoop(ctx context.Context, querier *pipeline.Query) error {
	color.Cyan("\nSearch your documents (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	prompt := color.New(color.FgGreen).PrintfFunc()

	for {
		prompt("\nQuery: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if strings.ToLower(query) == "exit" {
			break
		}
		if query == "" {
			continue
		}

		hits, err := querier.Query(ctx, query)
		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}
		if len(hits) == 0 {
			color.Yellow("No matches found\n")
			continue
		}

		for i, hit := range hits {
			color.Cyan("\n%d. (score %.3f)", i+1, hit.Score)
			fmt.Println(snippet(hit.Text, 300))
		}
	}

	return scanner.Err()
}

func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
