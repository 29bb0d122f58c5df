package simulator

import (
	"time"
)

const (
	maxArrivalsPerTick   = 8
	maxDeparturesPerTick = 6
)

// activityForHour approximates a bar's evening curve: dead through the
// afternoon, building from 18:00, peaking 22:00 to 01:00, then winding
// down toward the 03:00 close.
func activityForHour(hour int) float64 {
	switch {
	case hour >= 22 || hour == 0:
		return 1.0
	case hour == 1:
		return 0.8
	case hour == 2:
		return 0.5
	case hour >= 20:
		return 0.8
	case hour >= 18:
		return 0.5
	case hour >= 16:
		return 0.2
	default:
		return 0.05
	}
}

type track struct {
	song   string
	artist string
}

var playlist = []track{
	{"Midnight City", "M83"},
	{"Dancing On My Own", "Robyn"},
	{"Take On Me", "a-ha"},
	{"Blinding Lights", "The Weeknd"},
	{"Mr. Brightside", "The Killers"},
	{"One More Time", "Daft Punk"},
	{"Juice", "Lizzo"},
	{"Electric Feel", "MGMT"},
}

// payload mirrors the JSON shape the Raspberry Pi publishers send.
type payload struct {
	DeviceID  string `json:"deviceId"`
	VenueID   string `json:"venueId"`
	Timestamp string `json:"timestamp"`
	Sensors   struct {
		SoundLevel         float64 `json:"sound_level"`
		LightLevel         float64 `json:"light_level"`
		IndoorTemperature  float64 `json:"indoor_temperature"`
		OutdoorTemperature float64 `json:"outdoor_temperature"`
		Humidity           float64 `json:"humidity"`
		Pressure           float64 `json:"pressure"`
	} `json:"sensors"`
	Occupancy struct {
		Current  int `json:"current"`
		Entries  int `json:"entries"`
		Exits    int `json:"exits"`
		Capacity int `json:"capacity"`
	} `json:"occupancy"`
	Spotify struct {
		CurrentSong string `json:"current_song"`
		Artist      string `json:"artist"`
	} `json:"spotify"`
}

// Reading builds the next published payload for the tick at the given time.
func (s *SimulationState) Reading(cfg Config, at time.Time) payload {
	activity := activityForHour(at.Hour())
	crowdLoad := float64(s.current) / float64(max(s.capacity, 1))
	noise := func(spread float64) float64 { return (s.rng.Float64() - 0.5) * spread }

	var p payload
	p.DeviceID = cfg.DeviceID
	p.VenueID = cfg.VenueID
	p.Timestamp = at.UTC().Format(time.RFC3339)

	// Sound tracks the crowd; lights dim as the night ramps up.
	p.Sensors.SoundLevel = 58 + crowdLoad*24 + activity*6 + noise(4)
	p.Sensors.LightLevel = 320 - activity*250 + noise(30)
	if p.Sensors.LightLevel < 10 {
		p.Sensors.LightLevel = 10
	}
	p.Sensors.IndoorTemperature = 69 + crowdLoad*5 + noise(1.5)
	p.Sensors.OutdoorTemperature = 55 + noise(6)
	p.Sensors.Humidity = 42 + crowdLoad*10 + noise(4)
	p.Sensors.Pressure = 1013 + noise(6)

	p.Occupancy.Current = s.current
	p.Occupancy.Entries = s.entries
	p.Occupancy.Exits = s.exits
	p.Occupancy.Capacity = s.capacity

	t := playlist[s.songIndex]
	p.Spotify.CurrentSong = t.song
	p.Spotify.Artist = t.artist

	return p
}
