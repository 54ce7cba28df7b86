package window

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/GoLapse/internal/console"
	"github.com/cjeanneret/GoLapse/internal/debug"
	"github.com/cjeanneret/GoLapse/internal/geo"
	"github.com/cjeanneret/GoLapse/internal/logic/plan"
)

// Locator is the geolocation/sun capability.
type Locator interface {
	Lookup(name string) (geo.Place, error)
	SunTimes(p geo.Place, day time.Time) (geo.SunTimes, error)
}

// Resolver determines the capture window, either from explicit hours or by
// asking the operator for a place and deriving sunset/sunrise there.
type Resolver struct {
	locator  Locator
	operator console.Operator
	now      func() time.Time
}

// NewResolver creates a resolver. locator and operator are only used when
// at least one hour is not given explicitly.
func NewResolver(locator Locator, operator console.Operator) *Resolver {
	return &Resolver{locator: locator, operator: operator, now: time.Now}
}

// Resolve returns the window. Nil hours are derived from the sun: sunset
// opens the window, sunrise closes it. console.ErrInterrupted is returned
// unchanged when the operator cancels.
func (r *Resolver) Resolve(ctx context.Context, start, end *int) (plan.Window, error) {
	if start != nil {
		if err := plan.ValidateHour("start time", *start); err != nil {
			return plan.Window{}, err
		}
	}
	if end != nil {
		if err := plan.ValidateHour("end time", *end); err != nil {
			return plan.Window{}, err
		}
	}
	if start != nil && end != nil {
		debug.Verbose("Window: explicit %02d-%02d, location not needed", *start, *end)
		return plan.NewWindow(*start, *end)
	}

	if r.locator == nil || r.operator == nil {
		return plan.Window{}, errors.New("start and end time are required when no location lookup is available")
	}

	place, err := r.confirmPlace(ctx)
	if err != nil {
		return plan.Window{}, err
	}

	st, err := r.locator.SunTimes(place, r.now())
	if err != nil {
		return plan.Window{}, fmt.Errorf("sun times for %s: %w", place.Name, err)
	}
	debug.Value("Sunset", st.Sunset.Format(time.Kitchen))
	debug.Value("Sunrise", st.Sunrise.Format(time.Kitchen))

	startHour, endHour := st.SunsetHour, st.SunriseHour
	if start != nil {
		startHour = *start
	} else {
		r.operator.Say("Start time set to:\t%d", startHour)
	}
	if end != nil {
		endHour = *end
	} else {
		r.operator.Say("End time set to:\t%d", endHour)
	}
	return plan.NewWindow(startHour, endHour)
}

// confirmPlace runs the place disambiguation protocol until the operator
// accepts a match or cancels.
func (r *Resolver) confirmPlace(ctx context.Context) (geo.Place, error) {
	for {
		name, err := r.operator.Ask(ctx, "What is your location/city?")
		if err != nil {
			return geo.Place{}, err
		}
		place, err := r.locator.Lookup(name)
		if err != nil {
			debug.Verbose("Lookup %q: %v", name, err)
			r.operator.Say("ERROR: Did not find that location, please try again.")
			continue
		}
		r.operator.Say("Found: %s", place)

		ok, err := console.Confirm(ctx, r.operator, "Does this look correct")
		if err != nil {
			return geo.Place{}, err
		}
		if ok {
			return place, nil
		}
	}
}
