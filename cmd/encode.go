package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/extractor"
	"github.com/kozaktomas/face-recognizer/internal/gallery"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Build a gallery file from a directory of face images",
	Long: `Encode every .jpg, .jpeg and .png image in the input directory and write
the first face of each as a gallery entry named after the file. The output
format follows the file extension (.json, .yaml or .yml).`,
	Args: cobra.NoArgs,
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)

	encodeCmd.Flags().String("input", "known_faces", "Directory with one image per known person")
	encodeCmd.Flags().String("output", "", "Gallery file to write (defaults to GALLERY_FILE)")
	encodeCmd.Flags().Int("concurrency", constants.DefaultConcurrency, "Number of images encoded in parallel")
	encodeCmd.Flags().Bool("no-progress", false, "Disable the progress bar")
}

func runEncode(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	input := mustGetString(cmd, "input")
	output := mustGetString(cmd, "output")
	if output == "" {
		output = cfg.Gallery.FilePath
	}
	concurrency := mustGetInt(cmd, "concurrency")

	files, err := gallery.ImageFiles(input)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no images found in %s", input)
	}
	fmt.Printf("Found %d images in %s\n\n", len(files), input)

	var bar *progressbar.ProgressBar
	if !mustGetBool(cmd, "no-progress") {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Encoding faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	startTime := time.Now()
	ext := extractor.NewHTTPClient(cfg.Extractor.URL, cfg.Extractor.Timeout, cfg.Extractor.MaxImageSize)
	g, report := gallery.Build(context.Background(), files, ext, gallery.BuildOptions{
		Concurrency: concurrency,
		OnFile: func(string) {
			if bar != nil {
				bar.Add(1)
			}
		},
	})
	if bar != nil {
		fmt.Println()
	}

	for _, path := range report.NoFace {
		log.WithField("file", path).Warn("no face found")
	}
	for path, err := range report.Failed {
		log.WithFields(logrus.Fields{"file": path, "error": err}).Error("failed to encode image")
	}

	if len(g) == 0 {
		return fmt.Errorf("no faces encoded from %d images", len(files))
	}
	if err := gallery.WriteFile(output, g); err != nil {
		return err
	}

	fmt.Println("\nEncoding complete!")
	fmt.Printf("  Images:   %d\n", report.Files)
	fmt.Printf("  Encoded:  %d\n", len(g))
	if len(report.NoFace) > 0 {
		fmt.Printf("  No face:  %d\n", len(report.NoFace))
	}
	if len(report.Failed) > 0 {
		fmt.Printf("  Errors:   %d\n", len(report.Failed))
	}
	fmt.Printf("  Output:   %s\n", output)
	fmt.Printf("  Duration: %s\n", time.Since(startTime).Round(time.Millisecond))
	return nil
}
