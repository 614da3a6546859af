package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/viant/agentvec/collection"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "agentvec %s\n", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the collection unless it exists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()
		_, created, err := rt.manager().EnsureCollection(cmd.Context(), rt.collection)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "%s collection %s created\n", color.GreenString("✓"), rt.collection)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "collection %s already exists\n", rt.collection)
		}
		return nil
	},
}

var insertCmd = &cobra.Command{
	Use:   "insert NAME KEYWORD...",
	Short: "Insert one agent and rebuild the index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()
		if _, _, err := rt.manager().EnsureCollection(cmd.Context(), rt.collection); err != nil {
			return err
		}
		id, err := rt.inserter().Insert(cmd.Context(), args[0], args[1:])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var (
	seedRate  float64
	seedBatch int
)

var seedCmd = &cobra.Command{
	Use:   "seed FILE",
	Short: "Load agents from a JSON or YAML seed file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seeds, err := collection.ReadSeedFile(args[0])
		if err != nil {
			return err
		}
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		policy := collection.Immediate()
		if seedBatch > 1 {
			policy = collection.Batched(seedBatch)
		}
		ins := rt.inserter(collection.WithPolicy(policy))
		defer ins.Close()
		started := time.Now()
		res, err := collection.NewLoader(rt.manager(), ins, seedRate, collection.WithLogger(rt.logger)).Load(cmd.Context(), seeds)
		if res != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d of %d agents in %s\n", len(res.IDs), len(seeds), time.Since(started).Round(time.Millisecond))
		}
		return err
	},
}

var searchK int

var searchCmd = &cobra.Command{
	Use:   "search KEYWORD...",
	Short: "Find the agents closest to the keywords",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()
		matches, err := rt.searcher().Search(cmd.Context(), args, searchK)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no matches")
			return nil
		}
		printHeader(fmt.Sprintf("Top %d for %v", len(matches), args))
		for _, m := range matches {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", color.YellowString("%.4f", m.Distance), m.Name)
		}
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the collection index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()
		started := time.Now()
		if err := rt.inserter().Rebuild(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s index rebuilt in %s\n", color.GreenString("✓"), time.Since(started).Round(time.Millisecond))
		return nil
	},
}

func init() {
	seedCmd.Flags().Float64Var(&seedRate, "rate", 0, "Maximum inserts per second (0 = unlimited)")
	seedCmd.Flags().IntVar(&seedBatch, "batch", 0, "Rebuild the index every N inserts instead of after each one")
	searchCmd.Flags().IntVarP(&searchK, "limit", "k", 3, "Number of matches")
}
