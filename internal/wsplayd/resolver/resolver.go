// Package resolver decides which playlist the main video zone plays today
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/wrale/wsplay/api/types/v1alpha1"
	"github.com/wrale/wsplay/internal/wsplayd/errors"
)

// Catalog looks up playlists of the configuration API
type Catalog interface {
	// Playlist returns one playlist; a missing playlist yields an errors.ErrNotFound error
	Playlist(ctx context.Context, playlistID string) (*v1alpha1.PlaylistRef, error)
	// Playlists lists the playlists of a center
	Playlists(ctx context.Context, centerID string) ([]v1alpha1.PlaylistRef, error)
}

// weekdayNames holds the playlist name used for each school day, per locale
var weekdayNames = map[string]map[time.Weekday]string{
	"es": {
		time.Monday:    "Lunes",
		time.Tuesday:   "Martes",
		time.Wednesday: "Miércoles",
		time.Thursday:  "Jueves",
		time.Friday:    "Viernes",
	},
	"en": {
		time.Monday:    "Monday",
		time.Tuesday:   "Tuesday",
		time.Wednesday: "Wednesday",
		time.Thursday:  "Thursday",
		time.Friday:    "Friday",
	},
}

// WeekdayName returns the localized playlist name for day, or "" on weekends
func WeekdayName(locale string, day time.Weekday) string {
	return weekdayNames[locale][day]
}

// Resolver picks the active playlist id for a center
type Resolver struct {
	catalog Catalog
	locale  string
	logger  *slog.Logger
}

// New creates a resolver for the given locale ("es" or "en")
func New(catalog Catalog, locale string, logger *slog.Logger) (*Resolver, error) {
	if _, ok := weekdayNames[locale]; !ok {
		return nil, fmt.Errorf("unsupported locale %q", locale)
	}
	return &Resolver{
		catalog: catalog,
		locale:  locale,
		logger:  logger,
	}, nil
}

// Resolve returns the playlist id to render on today's date. An empty id with
// a nil error means there is no playlist and the screen goes to standby.
func (r *Resolver) Resolve(ctx context.Context, centerID string, today time.Time, override string) (string, error) {
	const op = "Resolver.Resolve"

	if override != "" {
		ref, err := r.catalog.Playlist(ctx, override)
		switch {
		case err == nil && ref.Active:
			return ref.ID, nil
		case err == nil:
			r.logger.Warn("playlist override is inactive, using weekday schedule",
				"playlistId", override,
				"centerId", centerID,
			)
		case errors.IsNotFound(err):
			r.logger.Warn("playlist override not found, using weekday schedule",
				"playlistId", override,
				"centerId", centerID,
			)
		default:
			return "", errors.NewError(errors.CodeResolve, "failed to look up playlist override", op, err)
		}
	}

	name := WeekdayName(r.locale, today.Weekday())
	if name == "" {
		// weekday playlists only exist Monday to Friday
		return "", nil
	}

	playlists, err := r.catalog.Playlists(ctx, centerID)
	if err != nil {
		return "", errors.NewError(errors.CodeResolve, "failed to list playlists", op, err)
	}

	want := foldName(name)
	for _, p := range playlists {
		if p.Kind != v1alpha1.PlaylistKindWeekday || !p.Active {
			continue
		}
		if p.CenterID != "" && p.CenterID != centerID {
			continue
		}
		if foldName(p.Name) == want {
			return p.ID, nil
		}
	}

	r.logger.Info("no weekday playlist for today",
		"centerId", centerID,
		"weekday", name,
	)
	return "", nil
}

// foldName normalises a playlist name so "miercoles", "MIÉRCOLES" and
// "Miércoles " compare equal
func foldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, strings.TrimSpace(name))
	if err != nil {
		stripped = strings.TrimSpace(name)
	}
	return cases.Fold().String(stripped)
}
