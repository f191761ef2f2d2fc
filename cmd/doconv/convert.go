package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgallion1/doconv/internal/convert"
	"github.com/dgallion1/doconv/internal/parser"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert a document to HTML or DOCX",
	Long: `Convert reads a PDF, DOCX, HTML, Markdown, text or CSV file and writes it as
HTML or DOCX. PDF to HTML goes through DOCX, as the HTTP service does.

The output is written next to the input with the target extension unless
--out is given; --out - writes to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("to", "html", "target format: html or docx")
	convertCmd.Flags().String("out", "", "output path (default: input name with the target extension)")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	toFlag, _ := cmd.Flags().GetString("to")
	out, _ := cmd.Flags().GetString("out")

	to, err := convert.ParseFormat(toFlag)
	if err != nil {
		return err
	}

	input := args[0]
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	conv := convert.New(newLogger(), nil, parser.Options{PDFFallback: viper.GetBool("pdf_fallback")})
	res, err := conv.Convert(cmd.Context(), data, input, to)
	if err != nil {
		return err
	}

	if out == "-" {
		_, err = cmd.OutOrStdout().Write(res.Data)
		return err
	}
	if out == "" {
		out = filepath.Join(filepath.Dir(input), res.Filename)
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s -> %s (%d bytes)\n", input, out, len(res.Data))
	return nil
}
