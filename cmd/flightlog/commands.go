package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flightbook/flightlog/internal/app"
	"github.com/flightbook/flightlog/internal/export"
	"github.com/flightbook/flightlog/internal/flightbook"
)

type rootFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	var prefsPath string

	root := &cobra.Command{
		Use:           "flightlog",
		Short:         "Browse, filter and export your flightbook logbook",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, flags, prefsPath)
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.config/flightlog/config.toml)")
	root.Flags().StringVar(&prefsPath, "prefs", "", "preferences file (default ~/.config/flightlog/prefs.toml)")

	root.AddCommand(
		tuiCmd(flags),
		exportCmd(flags),
		serveCmd(flags),
		addCmd(flags),
		glidersCmd(flags),
		versionCmd(),
	)
	return root
}

func openSession(cmd *cobra.Command, flags *rootFlags, terminalUI bool) (*app.Session, error) {
	return app.NewSession(app.Options{
		ConfigPath: flags.configPath,
		Version:    Version,
		TerminalUI: terminalUI,
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
	})
}

func runTUI(cmd *cobra.Command, flags *rootFlags, prefsPath string) error {
	s, err := openSession(cmd, flags, true)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.RunTUI(cmd.Context(), app.TUIOptions{PrefsPath: prefsPath})
}

func tuiCmd(flags *rootFlags) *cobra.Command {
	var prefsPath string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive flight list (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, flags, prefsPath)
		},
	}
	cmd.Flags().StringVar(&prefsPath, "prefs", "", "preferences file (default ~/.config/flightlog/prefs.toml)")
	return cmd
}

// filterFlags are the criteria shared by commands that select flights.
type filterFlags struct {
	from, to, glider, start, landing, description string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "first flight date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "last flight date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.glider, "glider", "", `glider as "brand name"`)
	cmd.Flags().StringVar(&f.start, "start", "", "takeoff site contains")
	cmd.Flags().StringVar(&f.landing, "landing", "", "landing site contains")
	cmd.Flags().StringVar(&f.description, "description", "", "description contains")
}

func (f *filterFlags) criteria(cmd *cobra.Command, gliders *flightbook.GliderCache) (*flightbook.Filter, error) {
	var out flightbook.Filter
	var err error
	if out.From, err = flightbook.ParseDate(f.from); err != nil {
		return nil, fmt.Errorf("--from: %w", err)
	}
	if out.To, err = flightbook.ParseDate(f.to); err != nil {
		return nil, fmt.Errorf("--to: %w", err)
	}
	if strings.TrimSpace(f.glider) != "" {
		g, err := gliders.Resolve(cmd.Context(), f.glider)
		if err != nil {
			return nil, fmt.Errorf("--glider: %w", err)
		}
		out.GliderID = g.ID
	}
	out.Start = f.start
	out.Landing = f.landing
	out.Description = f.description
	if out.IsZero() {
		return nil, nil
	}
	return &out, nil
}

func exportCmd(flags *rootFlags) *cobra.Command {
	var (
		format string
		env    string
		filter filterFlags
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export flights as XLSX or PDF",
		Long: `Export every flight matching the filter flags.

The native environment writes the file under documents_dir and opens it with
open_command. The web environment writes the file to stdout:

  flightlog export --format pdf --env web > flights.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			var environment export.Environment
			if env != "" {
				if environment, err = export.ParseEnvironment(env); err != nil {
					return err
				}
			}

			s, err := openSession(cmd, flags, false)
			if err != nil {
				return err
			}
			defer s.Close()

			criteria, err := filter.criteria(cmd, s.Gliders)
			if err != nil {
				return err
			}
			res, err := s.Export(cmd.Context(), app.ExportRequest{Format: f, Environment: environment, Filter: criteria})
			if err != nil {
				return err
			}
			if res.Environment == export.EnvironmentNative {
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d flights to %s\n", res.Flights, res.Location.URI)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "xlsx", "export format (xlsx, pdf)")
	cmd.Flags().StringVar(&env, "env", "", "environment (native, web); defaults to the configured one")
	filter.register(cmd)
	return cmd
}

func serveCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve exports, metrics and health over HTTP",
		Long: `Start the HTTP server.

Routes:
  GET /export/{xlsx|pdf}   download an export (filter via query parameters)
  GET /metrics             Prometheus metrics
  GET /healthz             liveness`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, flags, false)
			if err != nil {
				return err
			}
			defer s.Close()
			if addr != "" {
				s.Config.ListenAddr = addr
			}
			return s.Serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides listen_addr)")
	return cmd
}

func addCmd(flags *rootFlags) *cobra.Command {
	var in app.NewFlight
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a flight to the logbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, flags, false)
			if err != nil {
				return err
			}
			defer s.Close()

			created, err := s.AddFlight(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "flight #%d on %s with %s saved\n",
				created.Number, created.DisplayDate(), created.Glider.Label())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Date, "date", "", "flight date (YYYY-MM-DD, default today)")
	f.StringVar(&in.Time, "time", "", "takeoff time (HH:MM)")
	f.StringVar(&in.Glider, "glider", "", `glider as "brand name" (default first glider)`)
	f.StringVar(&in.Start, "start", "", "takeoff site")
	f.StringVar(&in.Landing, "landing", "", "landing site")
	f.StringVar(&in.Duration, "duration", "", "airtime (HH:MM)")
	f.Float64Var(&in.KM, "km", 0, "distance in km")
	f.StringVar(&in.Description, "description", "", "notes")
	return cmd
}

func glidersCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "gliders",
		Short: "List your gliders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, flags, false)
			if err != nil {
				return err
			}
			defer s.Close()

			gliders, err := s.ListGliders(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tBRAND\tNAME")
			for _, g := range gliders {
				fmt.Fprintf(w, "%d\t%s\t%s\n", g.ID, g.Brand, g.Name)
			}
			return w.Flush()
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "flightlog %s\n", Version)
		},
	}
}
