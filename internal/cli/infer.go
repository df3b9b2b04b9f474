package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"iogtransforms/internal/imageio"
	"iogtransforms/pkg/geometry"
	"iogtransforms/pkg/sample"
)

type inferOptions struct {
	image      string
	roi        string
	center     string
	foreground []string
	background []string
	output     string
}

func newInferCmd(root *rootOptions) *cobra.Command {
	opts := inferOptions{}

	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Build the network input for a user ROI and clicks",
		Long: `Build the network input for a user ROI and clicks.

The ROI is cropped with the configured relax margin and resized to the network
resolution. The guidance map gets the centre click and --fg clicks on the
foreground channel, and the padded ROI corners and --bg clicks on the
background channel. All coordinates are pixels of the input image.`,
		Example: `  iogtransforms infer --image cat.jpg --roi 40,30,120,90
  iogtransforms infer --image cat.jpg --roi 40,30,120,90 --center 95,70 --bg 60,40`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			cfg, err := root.load()
			if err != nil {
				return err
			}
			if opts.output != "" {
				cfg.Output.Dir = opts.output
			}

			roi, err := parseROI(opts.roi)
			if err != nil {
				return fmt.Errorf("--roi: %w", err)
			}
			center := geometry.ImagePoint(float64(roi.X)+float64(roi.Width)/2, float64(roi.Y)+float64(roi.Height)/2)
			if opts.center != "" {
				if center, err = parsePoint(opts.center); err != nil {
					return fmt.Errorf("--center: %w", err)
				}
			}
			fg, err := parsePoints(opts.foreground)
			if err != nil {
				return fmt.Errorf("--fg: %w", err)
			}
			bg, err := parsePoints(opts.background)
			if err != nil {
				return fmt.Errorf("--bg: %w", err)
			}

			pipeline, err := cfg.InferencePipeline()
			if err != nil {
				return err
			}
			pipeline = pipeline.WithLogger(logger)

			img, err := imageio.LoadImage(opts.image)
			if err != nil {
				return err
			}
			fields := map[string]sample.Field{
				sample.FieldImage:       sample.Image(img),
				sample.FieldPointCenter: sample.Points(center),
				sample.FieldROI:         sample.BoundingBox(roi.BBox()),
				sample.FieldMeta:        sample.Metadata(map[string]string{"image": filepath.Base(opts.image)}),
			}
			if len(fg) > 0 {
				fields[sample.FieldForegroundClicks] = sample.Points(fg...)
			}
			if len(bg) > 0 {
				fields[sample.FieldBackgroundClicks] = sample.Points(bg...)
			}

			prog := newProgress(logger)
			out, err := pipeline.Apply(sample.New(fields), nil)
			if err != nil {
				return err
			}
			n, err := writeSample(logger, cfg, out, cfg.Output.Dir)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Built inference input for %s, wrote %d files to %s", roi.BBox().Rect(), n, cfg.Output.Dir))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.image, "image", "", "input image file")
	cmd.Flags().StringVar(&opts.roi, "roi", "", "object box as x,y,width,height")
	cmd.Flags().StringVar(&opts.center, "center", "", "click inside the object as x,y (default: ROI centre)")
	cmd.Flags().StringArrayVar(&opts.foreground, "fg", nil, "corrective foreground click as x,y (repeatable)")
	cmd.Flags().StringArrayVar(&opts.background, "bg", nil, "corrective background click as x,y (repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory (overrides the configuration)")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("roi")

	return cmd
}
