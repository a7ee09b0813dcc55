package main

import (
	"context"
	"errors"

	"vectorhub/internal/engine"
	"vectorhub/internal/vector"
	pkgerrors "vectorhub/pkg/errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newCreateCmd() *cobra.Command {
	var (
		dim          int
		primaryField string
		vectorField  string
		description  string
		ifNotExists  bool
	)
	cmd := &cobra.Command{
		Use:   "create <collection>",
		Short: "Create a collection",
		Long: `Create a collection with an int64 primary key and one float vector field.

Examples:
  vectorhub create docs --dim 768
  vectorhub create docs --dim 4 --vector-field vec --if-not-exists`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			schema := engine.Schema{
				PrimaryField: primaryField,
				VectorField:  vectorField,
				Dimension:    dim,
				Description:  description,
			}
			return withSession(func(ctx context.Context, s *session) error {
				err := vector.NewManager(s.handle).Create(ctx, name, schema)
				if ifNotExists && errors.Is(err, pkgerrors.ErrCollectionExists) {
					printf("Collection %s already exists\n", color.CyanString(name))
					return nil
				}
				if err != nil {
					return err
				}
				printf("%s Created collection %s (dim %d)\n", color.GreenString("✓"), color.CyanString(name), dim)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&dim, "dim", "d", 0, "Vector dimension (required)")
	cmd.Flags().StringVar(&primaryField, "primary-field", engine.DefaultPrimaryField, "Primary key field name")
	cmd.Flags().StringVar(&vectorField, "vector-field", engine.DefaultVectorField, "Vector field name")
	cmd.Flags().StringVar(&description, "description", "", "Collection description")
	cmd.Flags().BoolVar(&ifNotExists, "if-not-exists", false, "Succeed when the collection already exists")
	_ = cmd.MarkFlagRequired("dim")
	return cmd
}

func newDropCmd() *cobra.Command {
	var ifExists bool
	cmd := &cobra.Command{
		Use:   "drop <collection>",
		Short: "Drop a collection and its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return withSession(func(ctx context.Context, s *session) error {
				err := vector.NewManager(s.handle).Drop(ctx, name)
				if ifExists && errors.Is(err, pkgerrors.ErrCollectionNotFound) {
					printf("Collection %s does not exist\n", color.CyanString(name))
					return nil
				}
				if err != nil {
					return err
				}
				printf("%s Dropped collection %s\n", color.GreenString("✓"), color.CyanString(name))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&ifExists, "if-exists", false, "Succeed when the collection does not exist")
	return cmd
}

func newExistsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <collection>",
		Short: "Check whether a collection exists",
		Long: `Check whether a collection exists.

Exits 0 when it exists and 3 when it does not.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return withSession(func(ctx context.Context, s *session) error {
				ok, err := vector.NewManager(s.handle).Exists(ctx, name)
				if err != nil {
					return err
				}
				if !ok {
					printf("%s %s\n", color.CyanString(name), color.YellowString("not found"))
					return pkgerrors.NotFound("exists", name, nil, "")
				}
				printf("%s %s\n", color.CyanString(name), color.GreenString("exists"))
				return nil
			})
		},
	}
}

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <collection>",
		Short: "Show a collection's schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return withSession(func(ctx context.Context, s *session) error {
				schema, err := vector.NewManager(s.handle).Describe(ctx, name)
				if err != nil {
					return err
				}
				printf("Collection:    %s\n", color.CyanString(name))
				printf("Primary field: %s (int64)\n", schema.PrimaryField)
				printf("Vector field:  %s (float32 x %d)\n", schema.VectorField, schema.Dimension)
				if schema.Description != "" {
					printf("Description:   %s\n", schema.Description)
				}
				return nil
			})
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List collections",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *session) error {
				names, err := vector.NewManager(s.handle).List(ctx)
				if err != nil {
					return err
				}
				if len(names) == 0 {
					printf("No collections\n")
					return nil
				}
				for _, name := range names {
					printf("%s\n", color.CyanString(name))
				}
				return nil
			})
		},
	}
}

func newIndexCmd() *cobra.Command {
	var (
		field string
		nlist int
	)
	cmd := &cobra.Command{
		Use:   "index <collection>",
		Short: "Build the IVF_FLAT (L2) index on a vector field",
		Long: `Build the IVF_FLAT index with L2 distance on a collection's vector field.

Building is idempotent and may run before any vectors are inserted.

Examples:
  vectorhub index docs
  vectorhub index docs --field vec --nlist 256`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return withSession(func(ctx context.Context, s *session) error {
				b := vector.NewIndexBuilder(s.handle)
				if field == "" {
					schema, err := vector.NewManager(s.handle).Describe(ctx, name)
					if err != nil {
						return err
					}
					field = schema.VectorField
				}
				var err error
				if nlist > 0 {
					err = b.BuildIndexWithParams(ctx, name, field, nlist)
				} else {
					err = b.BuildIndex(ctx, name, field)
				}
				if err != nil {
					return err
				}
				printf("%s Built IVF_FLAT index on %s.%s\n", color.GreenString("✓"), color.CyanString(name), field)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&field, "field", "f", "", "Vector field (default: the collection's vector field)")
	cmd.Flags().IntVar(&nlist, "nlist", 0, "IVF cluster count (default from config)")
	return cmd
}
