package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Seednode/slotpick/games/slots"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	identityToken   = "token"
	identityAddress = "address"
)

var defaultSlots = []string{"Alpha", "Bravo", "Charlie", "Delta"}

type Config struct {
	auditDB      string
	bind         string
	configFile   string
	identity     string
	pollInterval time.Duration
	port         int
	prefix       string
	profile      bool
	slots        []string
	tlsCert      string
	tlsKey       string
	tokenKey     string
	trustedProxy bool
	verbose      bool
	version      bool

	bindings []slots.Binding
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.identity != identityToken && c.identity != identityAddress {
		return fmt.Errorf("invalid identity mode (must be %q or %q): %q", identityToken, identityAddress, c.identity)
	}
	if c.pollInterval <= 0 {
		return fmt.Errorf("invalid poll interval (must be positive): %s", c.pollInterval)
	}

	if c.bindings == nil {
		bindings, err := parseSlots(c.slots)
		if err != nil {
			return err
		}
		c.bindings = bindings
	}
	if len(c.bindings) == 0 {
		return slots.ErrNoSlots
	}

	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// parseSlots reads "name" or "name:passcode" entries.
func parseSlots(entries []string) ([]slots.Binding, error) {
	bindings := make([]slots.Binding, 0, len(entries))

	for _, entry := range entries {
		name, secret, _ := strings.Cut(entry, ":")

		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid slot %q: empty name", entry)
		}

		bindings = append(bindings, slots.Binding{
			Name:   name,
			Secret: secret,
		})
	}

	return bindings, nil
}

// loadConfigFile applies values from --config to every flag not already set
// on the command line or in the environment. The slot list is read as a list
// of {name, secret} tables.
func loadConfigFile(v *viper.Viper, cfg *Config, fs *pflag.FlagSet) error {
	if cfg.configFile == "" {
		return nil
	}

	fv := viper.New()
	fv.SetConfigFile(cfg.configFile)
	if err := fv.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", cfg.configFile, err)
	}

	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed || f.Name == "slot" || v.IsSet(f.Name) {
			return
		}
		if fv.IsSet(f.Name) {
			err = fs.Set(f.Name, fmt.Sprintf("%v", fv.Get(f.Name)))
		}
	})
	if err != nil {
		return err
	}

	if fs.Changed("slot") || !fv.IsSet("slots") {
		return nil
	}

	var bindings []slots.Binding
	if err := fv.UnmarshalKey("slots", &bindings); err != nil {
		return fmt.Errorf("read slots from %s: %w", cfg.configFile, err)
	}
	cfg.bindings = bindings

	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SLOTPICK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "slotpick",
		Short:         "Claim one hidden slot each from a small shared board.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfigFile(v, cfg, cmd.Flags()); err != nil {
				return err
			}
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.auditDB, "audit-db", "", "path to sqlite database recording every claim (env: SLOTPICK_AUDIT_DB)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SLOTPICK_BIND)")
	fs.StringVarP(&cfg.configFile, "config", "c", "", "path to config file (env: SLOTPICK_CONFIG)")
	fs.StringVar(&cfg.identity, "identity", identityToken, "how participants are told apart: token or address (env: SLOTPICK_IDENTITY)")
	fs.DurationVar(&cfg.pollInterval, "poll-interval", slots.DefaultPollInterval, "how often browsers refresh the board (env: SLOTPICK_POLL_INTERVAL)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: SLOTPICK_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: SLOTPICK_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: SLOTPICK_PROFILE)")
	fs.StringSliceVarP(&cfg.slots, "slot", "s", defaultSlots, "slot as name[:passcode], repeatable, in board order (env: SLOTPICK_SLOT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: SLOTPICK_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: SLOTPICK_TLS_KEY)")
	fs.StringVar(&cfg.tokenKey, "token-key", "", "key used to sign identity tokens; random per run if unset (env: SLOTPICK_TOKEN_KEY)")
	fs.BoolVar(&cfg.trustedProxy, "trusted-proxy", false, "take client addresses from CF-Connecting-IP, X-Real-IP and X-Forwarded-For; only safe behind a proxy that sets them (env: SLOTPICK_TRUSTED_PROXY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SLOTPICK_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SLOTPICK_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.AddCommand(newWatchCmd(), newPickCmd(), newAuditCmd())

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("slotpick v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
