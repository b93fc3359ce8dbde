// Package config provides configuration loading, defaults and validation
// for hourwatch.
package config

// DefaultConfigDir is the default location for hourwatch configuration.
const DefaultConfigDir = "~/.config/hourwatch"

// DefaultDBName is the filename for the SQLite run history.
const DefaultDBName = "hourwatch.db"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// DefaultInputs are the default input locations.
var DefaultInputs = Inputs{
	Events:     "~/wbso/system_events.csv",
	CommitsDir: "~/wbso/commits",
	Calendar:   "",
	OutputDir:  "~/wbso/output",
}

// DefaultIdentityMarker is matched case-insensitively against commit authors.
const DefaultIdentityMarker = "kuppens"

// DefaultCutoffDate is the start of the eligible reporting period.
const DefaultCutoffDate = "2025-05-01"

// DefaultTimezone is used to render unix commit timestamps.
const DefaultTimezone = "Local"

// DefaultTargetHours is the reporting target.
const DefaultTargetHours = 510.0

// DefaultWorkWindow bounds the clock times at which sessions may open.
var DefaultWorkWindow = WorkWindow{Start: "08:00", End: "18:00"}

// DefaultSession holds the default session floor and ceiling.
var DefaultSession = Session{MinMinutes: 30, MaxHours: 12}

// DefaultBreaks deducts half an hour from sessions over six hours.
var DefaultBreaks = Breaks{ThresholdHours: 6, AllowanceMinutes: 30}

// DefaultConflicts classifies overlaps below two hours as SHORT.
var DefaultConflicts = Conflicts{ShortHours: 2}

// DefaultSlots are the synthetic session templates.
var DefaultSlots = []Slot{
	{Name: "morning", Start: "08:00", End: "12:00", DurationHours: 4.0, WorkHours: 3.5, UntilHour: 12},
	{Name: "afternoon", Start: "13:00", End: "17:00", DurationHours: 4.0, WorkHours: 3.5, UntilHour: 18},
	{Name: "evening", Start: "19:00", End: "22:00", DurationHours: 3.0, WorkHours: 2.5, UntilHour: 24},
}
