package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ewilliams-labs/groundswell/internal/core/domain"
	"github.com/ewilliams-labs/groundswell/internal/core/garden"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	featuresPath string
	seed         string
	noise        string
	segments     int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "gardenctl",
		Short:        "Generate listening gardens from audio features",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.featuresPath, "features", "f", "", "JSON file of audio features (defaults when empty)")
	root.PersistentFlags().StringVar(&opts.seed, "seed", "", "identity to seed from (feature fingerprint when empty)")
	root.PersistentFlags().StringVar(&opts.noise, "noise", garden.NoiseSimplex, "noise source: simplex, perlin or random")
	root.PersistentFlags().IntVar(&opts.segments, "segments", 0, "terrain segments per side")

	root.AddCommand(newGenerateCmd(opts), newPoseCmd(opts), newOceanCmd(opts))
	return root
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print a garden summary, or the full garden with --json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := opts.generate()
			if err != nil {
				return err
			}
			if full {
				return writeJSON(cmd.OutOrStdout(), g)
			}
			printSummary(cmd.OutOrStdout(), g)
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "json", false, "print the full garden as JSON")
	return cmd
}

func newPoseCmd(opts *rootOptions) *cobra.Command {
	var t float64
	cmd := &cobra.Command{
		Use:   "pose",
		Short: "Print entity poses at elapsed time t",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := opts.generate()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, p := range g.Poses(t) {
				e := g.Entities[i]
				fmt.Fprintf(out, "%-8s %6d  %8.3f %8.3f %8.3f  opacity=%.3f scale=%.3f\n",
					e.Kind, e.Vertex, p.Position.X, p.Position.Y, p.Position.Z, p.Opacity, p.Scale)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&t, "t", 0, "elapsed seconds")
	return cmd
}

func newOceanCmd(opts *rootOptions) *cobra.Command {
	var (
		t            float64
		danceability float64
	)
	cmd := &cobra.Command{
		Use:   "ocean",
		Short: "Print ocean heights at elapsed time t as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := danceability
			if !cmd.Flags().Changed("danceability") {
				input, err := readFeatures(opts.featuresPath)
				if err != nil {
					return err
				}
				d = input.Resolve().Danceability
			}
			o := opts.options()
			ocean := garden.NewOcean(o.Terrain.Size, o.OceanSegments, garden.WaveParamsFor(d))
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"t":        t,
				"segments": ocean.Segments,
				"params":   ocean.Params,
				"heights":  ocean.Fill(t, nil),
			})
		},
	}
	cmd.Flags().Float64Var(&t, "t", 0, "elapsed seconds")
	cmd.Flags().Float64Var(&danceability, "danceability", domain.DefaultDanceability, "override the feature file's danceability")
	return cmd
}

func (o *rootOptions) options() garden.Options {
	opts := garden.DefaultOptions()
	opts.Noise = o.noise
	if o.segments > 0 {
		opts.Terrain.Segments = o.segments
	}
	return opts
}

func (o *rootOptions) generate() (*garden.Garden, error) {
	input, err := readFeatures(o.featuresPath)
	if err != nil {
		return nil, err
	}
	return garden.Generate(input, o.seed, o.options())
}

// readFeatures loads a FeatureInput from path. An empty path yields nil,
// which resolves to the defaults.
func readFeatures(path string) (*domain.FeatureInput, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}
	var in domain.FeatureInput
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parse features: %w", err)
	}
	return &in, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(w io.Writer, g *garden.Garden) {
	fmt.Fprintf(w, "seed        %d (%s)\n", g.Seed, g.SeedSource)
	fmt.Fprintf(w, "noise       %s\n", g.Noise)
	fmt.Fprintf(w, "max height  %.3f\n", g.Terrain.MaxHeight())
	fmt.Fprintf(w, "trees       %d\n", g.Trees())
	fmt.Fprintf(w, "fireflies   %d\n", g.Fireflies())
	fmt.Fprintf(w, "sky         %s\n", g.Palette.Sky)

	counts := g.Terrain.BiomeCounts()
	biomes := make([]garden.Biome, 0, len(counts))
	for b := range counts {
		biomes = append(biomes, b)
	}
	sort.Slice(biomes, func(i, j int) bool { return biomes[i] < biomes[j] })
	for _, b := range biomes {
		fmt.Fprintf(w, "  %-9s %d\n", b, counts[b])
	}
}
