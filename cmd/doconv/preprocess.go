package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgallion1/doconv/internal/chunker"
	"github.com/dgallion1/doconv/internal/convert"
	"github.com/dgallion1/doconv/internal/htmlprep"
	"github.com/dgallion1/doconv/internal/parser"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess <file>",
	Short: "Chunk a document and map chunks to the tables they overlap",
	Long: `Preprocess renders the input as HTML, extracts its plain text and tables,
splits the text into overlapping chunks and prints, as JSON, each chunk with
the indices of the tables whose padded span it overlaps.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreprocess,
}

func init() {
	f := preprocessCmd.Flags()
	f.Int("chunk-size", 400, "chunk length in characters")
	f.Int("chunk-overlap", 250, "characters shared by consecutive chunks")
	f.Int("pad-margin", htmlprep.DefaultPadMargin, "characters added on each side of a located table")
	f.String("align", string(htmlprep.AlignWindow), "table alignment: window or early_exit")
	f.String("source", "", "source identifier stored on every chunk (default: the file name)")
	for _, name := range []string{"chunk-size", "chunk-overlap", "pad-margin", "align"} {
		viper.BindPFlag(name, f.Lookup(name))
	}

	rootCmd.AddCommand(preprocessCmd)
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	input := args[0]
	source, _ := cmd.Flags().GetString("source")
	if source == "" {
		source = filepath.Base(input)
	}

	cfg := htmlprep.Config{
		Chunk: chunker.Config{
			ChunkSize:    viper.GetInt("chunk-size"),
			ChunkOverlap: viper.GetInt("chunk-overlap"),
		},
		PadMargin: viper.GetInt("pad-margin"),
		Align:     htmlprep.AlignMode(viper.GetString("align")),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	log := newLogger()
	conv := convert.New(log, nil, parser.Options{PDFFallback: viper.GetBool("pdf_fallback")})
	content, err := conv.ToHTML(cmd.Context(), data, input)
	if err != nil {
		return err
	}

	res, err := htmlprep.Preprocess(log, content, source, cfg)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
