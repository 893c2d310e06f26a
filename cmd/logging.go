package main

import (
	"io"
	"log/slog"
	"path/filepath"

	"github.com/scitags/hostwatch/capture"
	"github.com/scitags/hostwatch/inventory"
	"github.com/scitags/hostwatch/monitor"
	hnl "github.com/scitags/hostwatch/netlink"
	"github.com/scitags/hostwatch/plugins/api"
	"github.com/scitags/hostwatch/resolver"
	"github.com/scitags/hostwatch/sampler"
	"github.com/scitags/hostwatch/settings"
	"github.com/scitags/hostwatch/sockdiag"
	"github.com/scitags/hostwatch/types"
)

// logLevel can be changed on the fly: see watchConf.
var logLevel = new(slog.LevelVar)

func logReplacements(groups []string, a slog.Attr) slog.Attr {
	// Remove time.
	if a.Key == slog.TimeKey && len(groups) == 0 && !logTimeFlag {
		return slog.Attr{}
	}

	// Remove the directory from the source's filename.
	if a.Key == slog.SourceKey {
		source, ok := a.Value.Any().(*slog.Source)
		if ok {
			source.File = filepath.Base(source.File)
		}
	}

	// slog would print DEBUG-1 otherwise.
	if a.Key == slog.LevelKey && len(groups) == 0 {
		if l, ok := a.Value.Any().(slog.Level); ok && l == types.LevelTrace {
			return slog.String(slog.LevelKey, "TRACE")
		}
	}

	return a
}

var componentLoggers = map[string]func(*slog.Logger){
	"settings":  settings.SetLogger,
	"netlink":   hnl.SetLogger,
	"inventory": inventory.SetLogger,
	"sockdiag":  sockdiag.SetLogger,
	"sampler":   sampler.SetLogger,
	"resolver":  resolver.SetLogger,
	"monitor":   monitor.SetLogger,
	"capture":   capture.SetLogger,
	"api":       api.SetLogger,
}

// setupLogging installs the default handler and hands every component a
// child of it.
func setupLogging(w io.Writer, level slog.Level) {
	logLevel.Set(level)

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource:   true,
		Level:       logLevel,
		ReplaceAttr: logReplacements,
	})))

	for name, set := range componentLoggers {
		set(types.ComponentLogger(name, true))
	}
}
