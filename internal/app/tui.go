package app

import (
	"context"

	"github.com/flightbook/flightlog/internal/listview"
	"github.com/flightbook/flightlog/internal/logging"
	"github.com/flightbook/flightlog/internal/prefs"
	"github.com/flightbook/flightlog/internal/ui"
)

// TUIOptions configure the terminal UI.
type TUIOptions struct {
	PrefsPath string // empty uses ~/.config/flightlog/prefs.toml
}

// RunTUI runs the terminal UI until the user quits or ctx is cancelled.
func (s *Session) RunTUI(ctx context.Context, opts TUIOptions) error {
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs, err := prefs.Load(prefsPath)
	if err != nil {
		s.Log.Warn(ctx, "preferences unreadable, using defaults",
			logging.String("path", prefsPath),
			logging.Error(err),
		)
	}

	bridge := ui.NewBridge()
	list := s.ListView(bridge, bridge, listview.WithExportIndicator(bridge.ExportIndicator()))

	s.Log.Info(ctx, "starting terminal ui",
		logging.String("environment", string(s.Environment)),
		logging.Int("page_limit", s.Config.PageLimit),
	)
	err = ui.Run(ui.Options{
		Context:     ctx,
		List:        list,
		Gliders:     s.Gliders,
		Bridge:      bridge,
		Environment: s.Environment,
		LogPath:     s.Config.LogPath(),
		Prefs:       userPrefs,
		PrefsPath:   prefsPath,
	})
	s.Log.Info(ctx, "terminal ui stopped")
	return err
}
