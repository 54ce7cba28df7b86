// Package geo resolves place names and computes local sunrise/sunset hours.
package geo

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // timezone data for hosts without a zoneinfo database

	"github.com/nathan-osman/go-sunrise"
	"gopkg.in/yaml.v3"
)

var (
	// ErrPlaceNotFound is returned by Lookup for unknown names.
	ErrPlaceNotFound = errors.New("place not found")
	// ErrSunComputation is returned when sunrise/sunset cannot be computed.
	ErrSunComputation = errors.New("sun computation failed")
)

//go:embed places.yaml
var builtinPlaces []byte

// Place is a named location with its timezone.
type Place struct {
	Name      string  `yaml:"name"`
	Region    string  `yaml:"region"`
	Timezone  string  `yaml:"timezone"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

func (p Place) String() string {
	return fmt.Sprintf("%s, %s (tz=%s, lat=%.2f, lon=%.2f)", p.Name, p.Region, p.Timezone, p.Latitude, p.Longitude)
}

// SunTimes holds the local sunrise and sunset hours of one day.
type SunTimes struct {
	Sunrise     time.Time
	Sunset      time.Time
	SunriseHour int
	SunsetHour  int
}

// Database is an in-memory place index.
type Database struct {
	places []Place
}

// NewDatabase loads the built-in places and merges extraFile on top when set.
// Entries in extraFile replace built-in entries with the same name and region.
func NewDatabase(extraFile string) (*Database, error) {
	places, err := parsePlaces(builtinPlaces)
	if err != nil {
		return nil, fmt.Errorf("built-in places: %w", err)
	}
	db := &Database{places: places}
	if extraFile == "" {
		return db, nil
	}
	data, err := os.ReadFile(extraFile)
	if err != nil {
		return nil, fmt.Errorf("read places file: %w", err)
	}
	extra, err := parsePlaces(data)
	if err != nil {
		return nil, fmt.Errorf("places file %s: %w", extraFile, err)
	}
	for _, p := range extra {
		db.add(p)
	}
	return db, nil
}

func parsePlaces(data []byte) ([]Place, error) {
	var places []Place
	if err := yaml.Unmarshal(data, &places); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	for _, p := range places {
		if p.Name == "" {
			return nil, errors.New("place without name")
		}
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return nil, fmt.Errorf("place %s: %w", p.Name, err)
		}
		if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
			return nil, fmt.Errorf("place %s: coordinates out of range", p.Name)
		}
	}
	return places, nil
}

func (d *Database) add(p Place) {
	for i, existing := range d.places {
		if strings.EqualFold(existing.Name, p.Name) && strings.EqualFold(existing.Region, p.Region) {
			d.places[i] = p
			return
		}
	}
	d.places = append(d.places, p)
}

// Len returns the number of known places.
func (d *Database) Len() int { return len(d.places) }

// Lookup finds a place by "name" or "name, region", ignoring case and
// surrounding spaces. The first match wins.
func (d *Database) Lookup(name string) (Place, error) {
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return Place{}, fmt.Errorf("%w: empty name", ErrPlaceNotFound)
	}
	cityPart, regionPart, hasRegion := strings.Cut(query, ",")
	cityPart = strings.TrimSpace(cityPart)
	regionPart = strings.TrimSpace(regionPart)

	for _, p := range d.places {
		if strings.ToLower(p.Name) != cityPart {
			continue
		}
		if hasRegion && strings.ToLower(p.Region) != regionPart {
			continue
		}
		return p, nil
	}
	return Place{}, fmt.Errorf("%w: %q", ErrPlaceNotFound, name)
}

// SunTimes computes sunrise and sunset for the calendar date of day as seen
// in the place's timezone.
func (d *Database) SunTimes(p Place, day time.Time) (SunTimes, error) {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return SunTimes{}, fmt.Errorf("%w: timezone %s: %w", ErrSunComputation, p.Timezone, err)
	}
	y, m, dd := day.In(loc).Date()
	rise, set := sunrise.SunriseSunset(p.Latitude, p.Longitude, y, m, dd)
	if rise.IsZero() || set.IsZero() {
		return SunTimes{}, fmt.Errorf("%w: the sun does not rise or set at %s on %04d-%02d-%02d", ErrSunComputation, p.Name, y, m, dd)
	}
	rise, set = rise.In(loc), set.In(loc)
	return SunTimes{
		Sunrise:     rise,
		Sunset:      set,
		SunriseHour: rise.Hour(),
		SunsetHour:  set.Hour(),
	}, nil
}
