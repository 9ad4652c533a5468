package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/ayusman/pupiltrack/internal/capture"
	"github.com/ayusman/pupiltrack/internal/pupil"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Run local contour detection on one image and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDetect(cmd, args[0], cmd.OutOrStdout())
	},
}

func init() {
	addDetectionFlags(detectCmd)
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, path string, out io.Writer) error {
	cfg, err := pupilConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Strategy != pupil.StrategyLocal {
		return fmt.Errorf("detect only supports the local strategy")
	}
	cfg.Logger = log.New(io.Discard, "", 0)

	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return fmt.Errorf("%w: cannot read image %s", capture.ErrInvalidFrame, path)
	}
	frame := capture.FromMat(&mat, 0)
	defer frame.Close()

	o := pupil.NewWithChannel(cfg, nil)
	defer o.Close()

	res, err := o.Detect(frame)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
