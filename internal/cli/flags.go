package cli

import (
	"github.com/spf13/cobra"

	"github.com/ayusman/gestureart/internal/config"
	"github.com/ayusman/gestureart/internal/render"
)

// sceneFlags are the settings both commands accept on the command line. A flag
// overrides the config file only when it was given.
type sceneFlags struct {
	theme     string
	particles int
	device    string
	fps       int
	seed      uint64
	camera    bool
}

func (o *sceneFlags) register(cmd *cobra.Command) {
	defaults := config.Default()
	cmd.Flags().StringVarP(&o.theme, "theme", "t", defaults.Theme, "starting theme key")
	cmd.Flags().IntVarP(&o.particles, "particles", "n", 0, "particle count (default: device budget)")
	cmd.Flags().StringVar(&o.device, "device", string(defaults.Device), "device class: desktop, mobile")
	cmd.Flags().IntVar(&o.fps, "fps", defaults.FPS, "scene frame rate")
	cmd.Flags().Uint64Var(&o.seed, "seed", 0, "random seed for a reproducible cloud (0: clock)")
	cmd.Flags().BoolVar(&o.camera, "camera", false, "start gesture tracking at launch")
}

func (o *sceneFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("theme") {
		cfg.Theme = o.theme
	}
	if flags.Changed("particles") {
		cfg.Particles = o.particles
	}
	if flags.Changed("device") {
		cfg.Device = render.DeviceClass(o.device)
	}
	if flags.Changed("fps") {
		cfg.FPS = o.fps
	}
	if flags.Changed("seed") {
		cfg.Seed = o.seed
	}
	if flags.Changed("camera") {
		cfg.Camera.Enabled = o.camera
	}
}
