// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/snipvec"
	"github.com/poiesic/snipvec/ai"
	"github.com/poiesic/snipvec/core"
	"github.com/poiesic/snipvec/storage/qdrant"
	"github.com/urfave/cli/v2"
)

func main() {
	// Optional .env for embedding host/model defaults
	godotenv.Load()

	app := &cli.App{
		Name:   "snipvec",
		Usage:  "Durable embedding pipeline for code snippets",
		Before: setupLogger,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Submit a batch of snippets for embedding and persistence",
				ArgsUsage: "<request.json>",
				Action:    ingestCommand,
				Flags: append(serviceFlags(),
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "Block until the instance reaches a terminal state",
					},
				),
			},
			{
				Name:      "status",
				Usage:     "Show the durable status of an orchestration instance",
				ArgsUsage: "<instance-id>",
				Action:    statusCommand,
				Flags:     serviceFlags(),
			},
			{
				Name:   "resume",
				Usage:  "Re-drive every interrupted instance without repeating completed work",
				Action: resumeCommand,
				Flags:  serviceFlags(),
			},
			{
				Name:      "search",
				Usage:     "Find persisted snippets similar to a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append(serviceFlags(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 10,
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serviceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"SNIPVEC_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   "embeddinggemma",
			EnvVars: []string{"SNIPVEC_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "qdrant-addr",
			Usage:   "Qdrant gRPC address; when set, documents go to Qdrant instead of the embedded store",
			EnvVars: []string{"SNIPVEC_QDRANT_ADDR"},
		},
		&cli.StringFlag{
			Name:    "qdrant-collection",
			Usage:   "Qdrant collection name",
			Value:   qdrant.DefaultCollection,
			EnvVars: []string{"SNIPVEC_QDRANT_COLLECTION"},
		},
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Maximum chunk length in runes",
			Value: 800,
		},
		&cli.IntFlag{
			Name:  "concurrency",
			Usage: "Worker pool size for embedding calls",
			Value: 4,
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum retry attempts for failed operations",
			Value: 3,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
			Value: 1 * time.Second,
		},
	}
}

func openService(c *cli.Context) (*snipvec.Service, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []snipvec.ServiceOption{
		snipvec.WithAIConfig(aiConfig),
		snipvec.WithChunkSize(c.Int("chunk-size")),
		snipvec.WithConcurrency(c.Int("concurrency")),
		snipvec.WithRetryPolicy(c.Int("max-retries"), c.Duration("retry-delay")),
	}

	if addr := c.String("qdrant-addr"); addr != "" {
		store, err := qdrant.NewStore(qdrant.Config{
			Addr:       addr,
			Collection: c.String("qdrant-collection"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		opts = append(opts, snipvec.WithDocumentStore(store))
	}

	service, err := snipvec.NewService(c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return service, nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one request file argument")
	}

	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to read request file: %w", err)
	}

	var req core.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("failed to parse request file: %w", err)
	}

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	id, err := service.Submit(ctx, &req)
	if err != nil {
		return fmt.Errorf("submission rejected: %w", err)
	}
	fmt.Printf("instance %s scheduled (%d snippets)\n", id, len(req.Snippets))

	if !c.Bool("wait") {
		return nil
	}

	for {
		instance, err := service.Status(ctx, id)
		if err != nil {
			return err
		}
		if instance.Status.Terminal() {
			printInstance(instance)
			return nil
		}
		select {
		case <-ctx.Done():
			// Interrupted runs stay resumable; finish with `snipvec resume`.
			fmt.Fprintln(os.Stderr, "interrupted; run `snipvec resume` to finish")
			return nil
		case <-time.After(250 * time.Millisecond):
		}
	}
}

func statusCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one instance ID argument")
	}

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	instance, err := service.Status(context.Background(), c.Args().First())
	if err != nil {
		return err
	}
	printInstance(instance)
	return nil
}

func resumeCommand(c *cli.Context) error {
	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ids, err := service.Resume(ctx)
	if err != nil {
		return fmt.Errorf("resume failed: %w", err)
	}
	if len(ids) == 0 {
		fmt.Println("no interrupted instances")
		return nil
	}

	fmt.Printf("resuming %d instance(s)\n", len(ids))
	for _, id := range ids {
		for {
			instance, err := service.Status(ctx, id)
			if err != nil {
				return err
			}
			if instance.Status.Terminal() {
				printInstance(instance)
				break
			}
			select {
			case <-ctx.Done():
				fmt.Fprintln(os.Stderr, "interrupted; run `snipvec resume` again to finish")
				return nil
			case <-time.After(250 * time.Millisecond):
			}
		}
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one query argument")
	}

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	results, err := service.Search(context.Background(), c.Args().First(), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("no matches")
		return nil
	}
	for i, match := range results {
		doc := match.Document
		fmt.Printf("%2d. %s (score %.3f", i+1, doc.Name, match.Score)
		if doc.Language != "" {
			fmt.Printf(", %s", doc.Language)
		}
		fmt.Println(")")
		for _, line := range strings.SplitN(doc.Code, "\n", 4) {
			fmt.Printf("      %s\n", line)
		}
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func printInstance(instance *core.Instance) {
	fmt.Printf("instance %s: %s\n", instance.ID, instance.Status)
	for _, progress := range instance.Progress {
		line := fmt.Sprintf("  %-24s %s", progress.Name, progress.State)
		if progress.Chunks > 0 {
			line += fmt.Sprintf(" (%d chunks)", progress.Chunks)
		}
		if progress.Error != "" {
			line += ": " + progress.Error
		}
		fmt.Println(line)
	}
}
