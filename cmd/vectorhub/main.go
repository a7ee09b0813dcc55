package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configPath string
	backend    string
	host       string
	port       int
	database   string
	dataDir    string
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "vectorhub",
		Short: "vectorhub manages collections on a vector similarity-search engine",
		Long: `vectorhub manages collections on a remote vector similarity-search engine.

It provides commands for:
  - Creating, describing and dropping collections
  - Building IVF_FLAT (L2) indexes
  - Inserting vectors and bulk loading JSONL or CSV files
  - Running top-K similarity searches

Supported backends: milvus, qdrant, oasis, memory. The memory backend keeps
its collections between runs only when --data-dir is set.

Quick start:
  vectorhub create docs --dim 4
  vectorhub insert docs --id 1 --vector 0,0,0,0
  vectorhub index docs
  vectorhub search docs --vector 0,0,0,0 --top-k 1`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	flags.StringVar(&backend, "backend", "", "Engine backend (milvus, qdrant, oasis, memory)")
	flags.StringVar(&host, "host", "", "Engine host")
	flags.IntVar(&port, "port", 0, "Engine port")
	flags.StringVar(&database, "db", "", "Logical database")
	flags.StringVar(&dataDir, "data-dir", "", "Journal directory for the memory backend")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newDropCmd())
	rootCmd.AddCommand(newExistsCmd())
	rootCmd.AddCommand(newDescribeCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newIndexCmd())
	rootCmd.AddCommand(newInsertCmd())
	rootCmd.AddCommand(newLoadCmd())
	rootCmd.AddCommand(newSearchCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(exitCode(err))
	}
}
