package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	config := DefaultConfig()
	var configFile string

	root := &cobra.Command{
		Use:           "photo-catalog",
		Short:         "Index a ZIP of photos into a spreadsheet and batch-rename them from it",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "YAML file with default settings (flags override it)")
	flags.StringVarP(&config.ArchivePath, "archive", "a", "", "ZIP archive of images")
	flags.StringVarP(&config.OutputBase, "output", "o", config.OutputBase, "Directory that receives the res<N> result folders")
	flags.StringVar(&config.OutputPrefix, "output-prefix", config.OutputPrefix, "Prefix of the numbered result folders")
	flags.StringVar(&config.RootPath, "root", "", "Root path written into the Path column (text only)")
	flags.StringVar(&config.SheetName, "sheet-name", config.SheetName, "Worksheet name of the generated spreadsheet")
	flags.StringVar(&config.SpreadsheetName, "spreadsheet-name", config.SpreadsheetName, "File name of the generated spreadsheet")
	flags.IntVar(&config.ThumbnailBox, "thumbnail-box", config.ThumbnailBox, "Bounding box of embedded thumbnails, in pixels")
	flags.StringSliceVar(&config.Include, "include", config.Include, "Glob patterns of archive entries to catalogue")
	flags.BoolVar(&config.ImageOnly, "image-only", config.ImageOnly, "Only accept target names with an image extension")
	flags.BoolVar(&config.KeepSkipped, "keep-skipped", false, "Copy rejected rows' images under their original name")
	flags.BoolVar(&config.UseExiftool, "exiftool", false, "Use exiftool for capture times goexif cannot read")
	flags.BoolVar(&config.NameDates, "name-dates", config.NameDates, "Infer capture dates from file names when EXIF has none")
	flags.StringVar(&config.SSHHost, "ssh-host", "", "Fetch --archive/--sheet from this SSH host (user@host:port)")
	flags.StringVar(&config.PublishHost, "publish-host", "", "Upload the results to this SSH host")
	flags.StringVar(&config.PublishDir, "publish-dir", "", "Remote directory for --publish-host")
	flags.BoolVarP(&config.Verbose, "verbose", "v", false, "Enable verbose logging")

	// Flags given on the command line win over the config file.
	prepare := func(cmd *cobra.Command) error {
		if configFile != "" {
			fromFile := DefaultConfig()
			if err := LoadConfigFile(configFile, fromFile); err != nil {
				return err
			}
			mergeUnsetFlags(cmd, config, fromFile)
		}
		SetVerbose(config.Verbose)
		return config.Validate()
	}

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Build the photo index spreadsheet and a flattened gallery archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.SheetPath = ""
			if err := prepare(cmd); err != nil {
				return err
			}
			return run(cmd.Context(), config)
		},
	}

	renameCmd := &cobra.Command{
		Use:     "rename",
		Short:   "Rename images as directed by an edited index spreadsheet",
		Aliases: []string{"ren"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := prepare(cmd); err != nil {
				return err
			}
			if config.SheetPath == "" {
				return &ConfigError{Err: errors.New("rename needs --sheet")}
			}
			return run(cmd.Context(), config)
		},
	}
	renameCmd.Flags().StringVarP(&config.SheetPath, "sheet", "s", "", "Edited index spreadsheet (xlsx)")

	root.AddCommand(indexCmd, renameCmd)
	return root
}

// mergeUnsetFlags copies values from the config file for every flag the user did not set.
func mergeUnsetFlags(cmd *cobra.Command, config, fromFile *Config) {
	set := func(name string) bool { return cmd.Flags().Changed(name) }

	if !set("archive") && fromFile.ArchivePath != "" {
		config.ArchivePath = fromFile.ArchivePath
	}
	if !set("sheet") && fromFile.SheetPath != "" && cmd.Name() == "rename" {
		config.SheetPath = fromFile.SheetPath
	}
	if !set("output") {
		config.OutputBase = fromFile.OutputBase
	}
	if !set("output-prefix") {
		config.OutputPrefix = fromFile.OutputPrefix
	}
	if !set("root") {
		config.RootPath = fromFile.RootPath
	}
	if !set("sheet-name") {
		config.SheetName = fromFile.SheetName
	}
	if !set("spreadsheet-name") {
		config.SpreadsheetName = fromFile.SpreadsheetName
	}
	if !set("thumbnail-box") {
		config.ThumbnailBox = fromFile.ThumbnailBox
	}
	if !set("include") {
		config.Include = fromFile.Include
	}
	if !set("image-only") {
		config.ImageOnly = fromFile.ImageOnly
	}
	if !set("keep-skipped") {
		config.KeepSkipped = fromFile.KeepSkipped
	}
	if !set("exiftool") {
		config.UseExiftool = fromFile.UseExiftool
	}
	if !set("name-dates") {
		config.NameDates = fromFile.NameDates
	}
	if !set("ssh-host") {
		config.SSHHost = fromFile.SSHHost
	}
	if !set("publish-host") {
		config.PublishHost = fromFile.PublishHost
	}
	if !set("publish-dir") {
		config.PublishDir = fromFile.PublishDir
	}
	if !set("verbose") {
		config.Verbose = fromFile.Verbose
	}
}

func run(ctx context.Context, config *Config) error {
	defer syncLogger()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := NewCatalogProcessor(config).Run(ctx)
	if err != nil {
		Errorf("Run failed: %v", err)
		return err
	}

	fmt.Println("\n=== Rename Log ===")
	for _, line := range result.Log {
		fmt.Println(line)
	}
	printStats(result.Stats)
	fmt.Printf("Results written to %s\n", result.OutputDir)
	for _, remote := range result.Published {
		fmt.Printf("Published %s:%s\n", config.PublishHost, remote)
	}
	if result.PublishErr != nil {
		return result.PublishErr
	}
	return nil
}
