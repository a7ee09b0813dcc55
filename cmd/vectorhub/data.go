package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"vectorhub/internal/engine"
	"vectorhub/internal/vector"
	pkgerrors "vectorhub/pkg/errors"
	"vectorhub/pkg/logger"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// queryVector resolves --vector or --text into a vector of the collection's dimension.
func queryVector(ctx context.Context, s *session, collection, vec, text string) ([]float32, error) {
	switch {
	case vec != "" && text != "":
		return nil, usageError("--vector and --text are mutually exclusive")
	case vec != "":
		v, err := parseVector(vec)
		if err != nil {
			return nil, usageError("--vector: %v", err)
		}
		return v, nil
	case text != "":
		schema, err := vector.NewManager(s.handle).Describe(ctx, collection)
		if err != nil {
			return nil, err
		}
		p, err := s.embedder(ctx, schema.Dimension)
		if err != nil {
			return nil, err
		}
		v, err := p.Embed(ctx, text)
		if err != nil {
			return nil, pkgerrors.Connection("embed", collection, err, "%s embedding failed", p.Name())
		}
		return v, nil
	}
	return nil, usageError("one of --vector or --text is required")
}

func newInsertCmd() *cobra.Command {
	var (
		id    int64
		key   string
		vec   string
		text  string
		attrs map[string]string
	)
	cmd := &cobra.Command{
		Use:   "insert <collection>",
		Short: "Insert one vector",
		Long: `Insert one record. The primary key is --id, or --key hashed into an int64.

Examples:
  vectorhub insert docs --id 1 --vector 0,0,0,0
  vectorhub insert docs --key readme --text "getting started" --attr lang=en`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			var idp *int64
			if cmd.Flags().Changed("id") {
				idp = &id
			}
			pk, err := recordID(idp, key)
			if err != nil {
				return usageError("%v", err)
			}
			return withSession(func(ctx context.Context, s *session) error {
				v, err := queryVector(ctx, s, name, vec, text)
				if err != nil {
					return err
				}
				rec := engine.Record{ID: pk, Vector: v}
				if len(attrs) > 0 || key != "" {
					rec.Attributes = make(map[string]any, len(attrs)+1)
					for k, val := range attrs {
						rec.Attributes[k] = val
					}
					if key != "" {
						rec.Attributes["key"] = key
					}
				}
				n, err := vector.NewWriter(s.handle).Insert(ctx, name, []engine.Record{rec})
				if err != nil {
					return err
				}
				printf("%s Inserted %d record into %s (id %d)\n", color.GreenString("✓"), n, color.CyanString(name), pk)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Primary key")
	cmd.Flags().StringVar(&key, "key", "", "String key hashed into the primary key")
	cmd.Flags().StringVar(&vec, "vector", "", "Comma-separated vector components")
	cmd.Flags().StringVar(&text, "text", "", "Text to embed instead of --vector")
	cmd.Flags().StringToStringVar(&attrs, "attr", nil, "Attribute key=value (repeatable)")
	return cmd
}

func newLoadCmd() *cobra.Command {
	var (
		batchSize int
		buildIdx  bool
	)
	cmd := &cobra.Command{
		Use:   "load <collection> <file>",
		Short: "Bulk load a JSONL or CSV file",
		Long: `Bulk load records in batches.

File formats:
  .jsonl  one object per line: {"id": 1, "vector": [...], "attributes": {...}}
          "key" may replace "id" and "text" may replace "vector"
  .csv    id,v1,v2,... with an optional header row

Each batch is atomic; on failure the records of earlier batches stay committed.

Examples:
  vectorhub load docs vectors.jsonl
  vectorhub load docs vectors.csv --batch-size 500 --index`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			rows, err := readRecords(f, path)
			f.Close()
			if err != nil {
				return usageError("%s: %v", path, err)
			}
			if len(rows) == 0 {
				return usageError("%s: no records", path)
			}

			return withSession(func(ctx context.Context, s *session) error {
				records, err := embedPending(ctx, s, name, rows)
				if err != nil {
					return err
				}

				start := time.Now()
				var progress vector.Progress
				if term.IsTerminal(int(os.Stderr.Fd())) {
					bar := progressbar.NewOptions(len(records),
						progressbar.OptionSetDescription(fmt.Sprintf("Loading %s", name)),
						progressbar.OptionSetWriter(os.Stderr),
						progressbar.OptionSetWidth(40),
						progressbar.OptionShowCount(),
						progressbar.OptionOnCompletion(func() {
							fmt.Fprintln(os.Stderr)
						}),
						progressbar.OptionSetTheme(progressbar.Theme{
							Saucer:        "=",
							SaucerHead:    ">",
							SaucerPadding: " ",
							BarStart:      "[",
							BarEnd:        "]",
						}),
					)
					progress = func(done, total int) {
						_ = bar.Set(done)
					}
				}

				n, err := vector.NewWriter(s.handle).InsertBatches(ctx, name, records, batchSize, progress)
				if err != nil {
					printf("%s Loaded %d of %d records before the failure\n", color.YellowString("!"), n, len(records))
					return err
				}
				logger.Info("load finished", "collection", name, "count", n, "duration", time.Since(start))
				printf("%s Loaded %d records into %s in %s\n", color.GreenString("✓"), n, color.CyanString(name),
					time.Since(start).Round(time.Millisecond))

				if buildIdx {
					schema, err := vector.NewManager(s.handle).Describe(ctx, name)
					if err != nil {
						return err
					}
					if err := vector.NewIndexBuilder(s.handle).BuildIndex(ctx, name, schema.VectorField); err != nil {
						return err
					}
					printf("%s Built IVF_FLAT index on %s.%s\n", color.GreenString("✓"), color.CyanString(name), schema.VectorField)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "Records per batch (default from config)")
	cmd.Flags().BoolVar(&buildIdx, "index", false, "Build the index after loading")
	return cmd
}

// embedPending fills the vectors of text-only rows with the configured provider.
func embedPending(ctx context.Context, s *session, collection string, rows []pending) ([]engine.Record, error) {
	records := make([]engine.Record, len(rows))
	var (
		texts []string
		slots []int
	)
	for i, r := range rows {
		records[i] = r.record
		if len(r.record.Vector) == 0 {
			texts = append(texts, r.text)
			slots = append(slots, i)
		}
	}
	if len(texts) == 0 {
		return records, nil
	}

	schema, err := vector.NewManager(s.handle).Describe(ctx, collection)
	if err != nil {
		return nil, err
	}
	p, err := s.embedder(ctx, schema.Dimension)
	if err != nil {
		return nil, err
	}
	logger.Info("embedding texts", "provider", p.Name(), "count", len(texts))
	vecs, err := p.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, pkgerrors.Connection("embed", collection, err, "%s embedding failed", p.Name())
	}
	if len(vecs) != len(texts) {
		return nil, pkgerrors.Rejected("embed", collection, nil, "%s returned %d vectors for %d texts", p.Name(), len(vecs), len(texts))
	}
	for j, i := range slots {
		records[i].Vector = vecs[j]
	}
	return records, nil
}

func newSearchCmd() *cobra.Command {
	var (
		vec  string
		text string
		topK int
	)
	cmd := &cobra.Command{
		Use:   "search <collection>",
		Short: "Find the nearest vectors by L2 distance",
		Long: `Find the top-K nearest vectors by L2 distance, closest first.

Examples:
  vectorhub search docs --vector 0,0,0,0 --top-k 5
  vectorhub search docs --text "how do I start" -k 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return withSession(func(ctx context.Context, s *session) error {
				q, err := queryVector(ctx, s, name, vec, text)
				if err != nil {
					return err
				}
				hits, err := vector.NewSearcher(s.handle).Search(ctx, name, q, topK)
				if err != nil {
					return err
				}
				if len(hits) == 0 {
					printf("No results\n")
					return nil
				}
				printf("%-6s %-20s %s\n", "RANK", "ID", "DISTANCE")
				for i, h := range hits {
					printf("%-6d %-20d %s\n", i+1, h.ID, formatDistance(h.Distance))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&vec, "vector", "", "Comma-separated query vector")
	cmd.Flags().StringVar(&text, "text", "", "Text to embed as the query")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 10, "Number of results")
	return cmd
}
