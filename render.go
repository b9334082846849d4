/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Seednode/guessword/fonts"
	"github.com/Seednode/guessword/mask"
	"github.com/Seednode/guessword/render"
	"github.com/Seednode/guessword/store"
)

type renderOptions struct {
	backgroundsDir string
	config         string
	dpr            float64
	fetchTimeout   time.Duration
	fontsDir       string
	height         float64
	masked         bool
	out            string
	width          float64
}

// renderFile draws a stored quiz configuration to a PNG on fsys, without
// starting the server.
func renderFile(cmd *cobra.Command, fsys afero.Fs, opts renderOptions) error {
	var quiz store.QuizConfig

	if opts.config == "" {
		quiz = store.Defaults()
	} else {
		data, err := afero.ReadFile(fsys, opts.config)
		if err != nil {
			return fmt.Errorf("read %s: %w", opts.config, err)
		}

		quiz = store.Decode(data)
	}

	registry, err := fonts.Load(afero.NewBasePathFs(fsys, opts.fontsDir), "")
	if err != nil {
		return err
	}

	backgrounds := afero.NewReadOnlyFs(afero.NewBasePathFs(fsys, opts.backgroundsDir))

	loader, err := render.NewLoader(backgrounds, &http.Client{Timeout: opts.fetchTimeout}, 1)
	if err != nil {
		return err
	}
	loader.SetLocalPrefix("/backgrounds/")

	surface := render.NewSurface(0, 0)

	err = render.Render(cmd.Context(), surface, quiz.RenderConfig(), render.Options{
		Width:            opts.width,
		Height:           opts.height,
		DevicePixelRatio: opts.dpr,
		Loader:           loader,
		Faces:            registry,
	})
	if err != nil {
		return err
	}

	if opts.masked {
		blocks := mask.NewBlockMask(quiz.BlockRows, quiz.BlockCols)

		if err := mask.DrawBlocks(surface, blocks, quiz.Style(), mask.NumbersFor(quiz), registry); err != nil {
			return err
		}
	}

	f, err := fsys.Create(opts.out)
	if err != nil {
		return fmt.Errorf("create %s: %w", opts.out, err)
	}

	if err := png.Encode(f, surface.Image()); err != nil {
		return errors.Join(fmt.Errorf("encode %s: %w", opts.out, err), f.Close())
	}

	if err := f.Close(); err != nil {
		return err
	}

	b := surface.Image().Bounds()

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%dx%d)\n", opts.out, b.Dx(), b.Dy())

	return err
}

func newRenderCmd(v *viper.Viper) *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a quiz configuration to a PNG file.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !strings.HasSuffix(strings.ToLower(opts.out), ".png") {
				return errors.New("output file must end in .png")
			}

			return renderFile(cmd, afero.NewOsFs(), opts)
		},
	}

	fs := cmd.Flags()

	normalizeFlags(fs)

	fs.StringVar(&opts.backgroundsDir, "backgrounds-dir", "backgrounds", "directory local background images are read from (env: GUESSWORD_BACKGROUNDS_DIR)")
	fs.StringVarP(&opts.config, "config", "c", "", "quiz configuration to render, defaults when empty")
	fs.Float64Var(&opts.dpr, "dpr", 1, "device pixel ratio")
	fs.DurationVar(&opts.fetchTimeout, "fetch-timeout", 30*time.Second, "timeout for fetching remote background images (env: GUESSWORD_FETCH_TIMEOUT)")
	fs.StringVar(&opts.fontsDir, "fonts-dir", "fonts", "directory local fonts and their manifest.json are read from (env: GUESSWORD_FONTS_DIR)")
	fs.Float64Var(&opts.height, "height", render.DefaultHeight, "image height in CSS pixels")
	fs.BoolVar(&opts.masked, "masked", false, "draw the closed block grid over the image")
	fs.StringVarP(&opts.out, "out", "o", "quiz.png", "file to write")
	fs.Float64Var(&opts.width, "width", render.DefaultWidth, "image width in CSS pixels")

	bindEnv(v, fs)

	return cmd
}
