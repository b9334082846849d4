package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	adminHash      string
	backgroundsDir string
	bind           string
	dataDir        string
	fetchTimeout   time.Duration
	fontsDir       string
	guestHash      string
	imageCacheSize int
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	sfxDir         string
	tlsCert        string
	tlsKey         string
	userHash       string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.imageCacheSize < 0 {
		return fmt.Errorf("invalid image cache size (must be zero or greater): %d", c.imageCacheSize)
	}
	if c.fetchTimeout < 0 {
		return fmt.Errorf("invalid fetch timeout (must be zero or greater): %s", c.fetchTimeout)
	}

	for flag, hash := range map[string]string{
		"--guest-password-hash": c.guestHash,
		"--user-password-hash":  c.userHash,
		"--admin-password-hash": c.adminHash,
	} {
		if hash == "" {
			continue
		}

		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return fmt.Errorf("invalid %s: %w", flag, err)
		}
	}

	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func normalizeFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

// bindEnv lets every flag of fs be set through a GUESSWORD_ environment
// variable.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("GUESSWORD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "guessword",
		Short:         "Hosts a guess-the-word picture quiz with a live, block-masked base image.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	normalizeFlags(fs)

	fs.StringVar(&cfg.adminHash, "admin-password-hash", "", "bcrypt hash of the admin password (env: GUESSWORD_ADMIN_PASSWORD_HASH)")
	fs.StringVar(&cfg.backgroundsDir, "backgrounds-dir", "backgrounds", "directory local background images are read from (env: GUESSWORD_BACKGROUNDS_DIR)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: GUESSWORD_BIND)")
	fs.StringVar(&cfg.dataDir, "data-dir", "data", "directory quiz configurations are stored in (env: GUESSWORD_DATA_DIR)")
	fs.DurationVar(&cfg.fetchTimeout, "fetch-timeout", 30*time.Second, "timeout for fetching remote background images (env: GUESSWORD_FETCH_TIMEOUT)")
	fs.StringVar(&cfg.fontsDir, "fonts-dir", "fonts", "directory local fonts and their manifest.json are read from (env: GUESSWORD_FONTS_DIR)")
	fs.StringVar(&cfg.guestHash, "guest-password-hash", "", "bcrypt hash of the guest password (env: GUESSWORD_GUEST_PASSWORD_HASH)")
	fs.IntVar(&cfg.imageCacheSize, "image-cache-size", 64, "number of decoded background images to keep in memory (env: GUESSWORD_IMAGE_CACHE_SIZE)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: GUESSWORD_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: GUESSWORD_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: GUESSWORD_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle logins and game sessions are ended (env: GUESSWORD_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.sfxDir, "sfx-dir", "sfx", "directory local sound effects are read from (env: GUESSWORD_SFX_DIR)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: GUESSWORD_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: GUESSWORD_TLS_KEY)")
	fs.StringVar(&cfg.userHash, "user-password-hash", "", "bcrypt hash of the user password (env: GUESSWORD_USER_PASSWORD_HASH)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: GUESSWORD_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: GUESSWORD_VERSION)")

	bindEnv(v, fs)

	cmd.AddCommand(newRenderCmd(v), newHashPasswordCmd())

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("guessword v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
