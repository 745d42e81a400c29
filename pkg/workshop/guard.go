package workshop

import "slices"

// Guard vets a bundle update against the target item's current metadata.
type Guard interface {
	Check(app AppID, details ItemDetails) error
}

// GuardFunc adapts a function to Guard.
type GuardFunc func(app AppID, details ItemDetails) error

func (f GuardFunc) Check(app AppID, details ItemDetails) error {
	return f(app, details)
}

// ScenarioGuard refuses bundle updates of items carrying Tag within App.
// Bundle uploads discard content laid out for the single-file format.
type ScenarioGuard struct {
	App AppID
	Tag string
}

// DefaultGuard protects scenarios of the flight-simulation app.
var DefaultGuard = ScenarioGuard{App: AppFlightSim, Tag: "Scenario"}

func (g ScenarioGuard) Check(app AppID, details ItemDetails) error {
	if app != g.App {
		return nil
	}
	if !slices.Contains(details.TagList(), g.Tag) {
		return nil
	}
	return &Error{
		Kind: KindIncompatibleContentType,
		Op:   "guard",
		Item: details.ItemID,
		Msg:  g.Tag + " items can't be uploaded as a bundle, use legacy mode",
	}
}

type noGuard struct{}

func (noGuard) Check(AppID, ItemDetails) error { return nil }

// NoGuard disables the bundle safety check.
var NoGuard Guard = noGuard{}
