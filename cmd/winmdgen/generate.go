package main

import (
	"context"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"winmdgen/internal/config"
	"winmdgen/internal/errors"
	"winmdgen/internal/logger"
	"winmdgen/internal/metadata"
	"winmdgen/internal/pipeline"
	"winmdgen/internal/tree"
)

const defaultMetadataPath = "Windows.Win32.winmd"

// Source and output flags shared by the generation commands.
type sourceFlags struct {
	metadataPath string
	snapshotPath string
	include      []string
	exclude      []string
	inputPath    string
	configPairs  []string
	configFile   string
	forceClean   bool
}

var source sourceFlags

var (
	goOut  string
	idlOut string
)

var goCmd = &cobra.Command{
	Use:   "go",
	Short: "Generate Go packages",
	Long: `Generate one Go package per namespace, or a single package with
--config flatten. Definitions needing other namespaces or an architecture are
placed in files with matching //go:build constraints.

Configuration keys: minimal, sys, flatten, package=<import path>, core=<import path>.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := source.values()
		if err != nil {
			return err
		}
		return generate(cmd.Context(), pipeline.Target{Backend: config.BackendGo, Values: values, Out: goOut})
	},
}

var idlCmd = &cobra.Command{
	Use:   "idl",
	Short: "Generate an IDL document",
	Long: `Pretty print the selected namespaces as nested IDL modules. The IDL
backend takes no configuration keys.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := source.values()
		if err != nil {
			return err
		}
		return generate(cmd.Context(), pipeline.Target{Backend: config.BackendIDL, Values: values, Out: idlOut})
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Generate Go packages and an IDL document",
	Long: `Run both backends over the same namespace tree. Configuration applies to
the Go backend. Nothing is written unless both succeed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := source.values()
		if err != nil {
			return err
		}
		return generate(cmd.Context(),
			pipeline.Target{Backend: config.BackendGo, Values: values, Out: goOut},
			pipeline.Target{Backend: config.BackendIDL, Out: idlOut},
		)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{goCmd, idlCmd, allCmd} {
		flags := cmd.Flags()
		flags.StringVar(&source.metadataPath, "metadata", defaultMetadataPath, "The .winmd file to read; downloaded when missing")
		flags.StringVar(&source.snapshotPath, "snapshot", "", "Read a YAML metadata snapshot instead of a .winmd file")
		flags.StringSliceVarP(&source.include, "filter", "f", nil, "Namespaces or qualified type names to include")
		flags.StringSliceVarP(&source.exclude, "exclude", "x", nil, "Namespaces or qualified type names to exclude")
		flags.StringVarP(&source.inputPath, "input", "i", "", "File with one filter rule per line; '!' or '-' excludes")
		flags.StringArrayVarP(&source.configPairs, "config", "c", nil, "Backend option as key or key=value (repeatable)")
		flags.StringVar(&source.configFile, "config-file", "", "YAML file of backend options")
	}
	for _, cmd := range []*cobra.Command{goCmd, allCmd} {
		cmd.Flags().BoolVar(&source.forceClean, "force-clean", false, "Empty a non-empty output directory without asking")
	}

	goCmd.Flags().StringVarP(&goOut, "out", "o", "./output/", "Output directory")
	allCmd.Flags().StringVar(&goOut, "go-out", "./output/", "Go output directory")
	idlCmd.Flags().StringVarP(&idlOut, "out", "o", "win32.idl", "Output file")
	allCmd.Flags().StringVar(&idlOut, "idl-out", "win32.idl", "IDL output file")
}

// values merges --config pairs over the --config-file mapping.
func (s *sourceFlags) values() (map[string]string, error) {
	base := map[string]string{}
	if s.configFile != "" {
		loaded, err := config.LoadFile(s.configFile)
		if err != nil {
			return nil, err
		}
		base = loaded
	}
	overrides, err := config.ParsePairs(s.configPairs)
	if err != nil {
		return nil, err
	}
	return config.Merge(base, overrides), nil
}

func (s *sourceFlags) reader(ctx context.Context) (metadata.Reader, error) {
	if s.snapshotPath != "" {
		return metadata.LoadSnapshot(s.snapshotPath)
	}

	if _, err := os.Stat(s.metadataPath); errors.Is(err, os.ErrNotExist) {
		logger.Logger.Infow("Metadata file not found, downloading", logger.FieldPath, s.metadataPath)
		if err := metadata.DownloadMetadata(ctx, s.metadataPath); err != nil {
			return nil, errors.WithHint(
				errors.Wrap(err, "downloading metadata"),
				"pass --metadata with an existing .winmd file or run winmdgen download",
			)
		}
	}
	return metadata.NewWinMdReader(s.metadataPath)
}

// filter builds the rule filter. Without include rules every root namespace
// is included so that exclusions alone still select something.
func (s *sourceFlags) filter(reader metadata.Reader) (metadata.Filter, error) {
	include := append([]string(nil), s.include...)
	exclude := append([]string(nil), s.exclude...)

	if s.inputPath != "" {
		file, err := os.Open(s.inputPath)
		if err != nil {
			return nil, errors.Wrap(err, "opening input file")
		}
		defer file.Close()
		fileInclude, fileExclude, err := metadata.ParseRules(file)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", s.inputPath)
		}
		include = append(include, fileInclude...)
		exclude = append(exclude, fileExclude...)
	}

	if len(include) == 0 && len(exclude) == 0 {
		return metadata.All, nil
	}
	if len(include) == 0 {
		include = roots(reader)
	}
	return metadata.NewFilter(include, exclude), nil
}

func roots(reader metadata.Reader) []string {
	set := map[string]bool{}
	for _, namespace := range reader.Namespaces() {
		if segments := tree.Segments(namespace); len(segments) > 0 && segments[0] != "" {
			set[segments[0]] = true
		}
	}
	roots := make([]string, 0, len(set))
	for root := range set {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}

func generate(ctx context.Context, targets ...pipeline.Target) error {
	// Options are checked before the metadata is loaded or downloaded.
	for _, target := range targets {
		if _, err := config.Parse(target.Backend, target.Values); err != nil {
			return err
		}
	}

	reader, err := source.reader(ctx)
	if err != nil {
		return err
	}
	filter, err := source.filter(reader)
	if err != nil {
		return err
	}

	_, err = pipeline.Run(ctx, pipeline.Request{
		Reader:     reader,
		Filter:     filter,
		Targets:    targets,
		ForceClean: source.forceClean,
		Confirm:    pipeline.PromptConfirm(os.Stdin, os.Stderr),
	})
	return err
}
