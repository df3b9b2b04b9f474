package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"iogtransforms/internal/imageio"
	"iogtransforms/pkg/sample"
)

type trainOptions struct {
	image  string
	mask   string
	count  int
	output string
}

func newTrainCmd(root *rootOptions) *cobra.Command {
	opts := trainOptions{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run the training pipeline on an image and its object mask",
		Long: `Run the training pipeline on an image and its object mask.

Each run draws a new augmentation from the seeded generator, crops around the
object, resizes to the network resolution and synthesises the guidance map.
The --count runs are written to numbered directories below the output directory.`,
		Example: `  iogtransforms train --image cat.jpg --mask cat_mask.png
  iogtransforms train --image cat.jpg --mask cat_mask.png --count 8 --seed 42 -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			cfg, err := root.load()
			if err != nil {
				return err
			}
			if opts.output != "" {
				cfg.Output.Dir = opts.output
			}
			pipeline, err := cfg.TrainingPipeline()
			if err != nil {
				return err
			}
			pipeline = pipeline.WithLogger(logger)
			logger.Debug("built pipeline", "pipeline", pipeline.String())

			img, err := imageio.LoadImage(opts.image)
			if err != nil {
				return err
			}
			mask, err := imageio.LoadMask(opts.mask)
			if err != nil {
				return err
			}
			s := sample.New(map[string]sample.Field{
				sample.FieldImage: sample.Image(img),
				sample.FieldMask:  sample.Mask(mask),
				sample.FieldMeta:  sample.Metadata(map[string]string{"image": filepath.Base(opts.image)}),
			})

			prog := newProgress(logger)
			rng := newRNG(cfg.Seed)
			files := 0
			for i := 0; i < opts.count; i++ {
				out, err := pipeline.Apply(s, rng)
				if err != nil {
					return fmt.Errorf("sample %d: %w", i, err)
				}
				n, err := writeSample(logger, cfg, out, filepath.Join(cfg.Output.Dir, fmt.Sprintf("sample_%03d", i)))
				files += n
				if err != nil {
					return fmt.Errorf("sample %d: %w", i, err)
				}
			}
			prog.done(fmt.Sprintf("Transformed %d samples, wrote %d files to %s", opts.count, files, cfg.Output.Dir))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.image, "image", "", "input image file")
	cmd.Flags().StringVar(&opts.mask, "mask", "", "object mask file")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 1, "number of augmented samples to produce")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory (overrides the configuration)")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("mask")

	return cmd
}
