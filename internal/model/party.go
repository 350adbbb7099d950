package model

import (
	"database/sql"
	"fmt"
	"time"
)

// DefaultPartyColor is used for parties missing from the colour table
const DefaultPartyColor = "#777777"

var partyColors = map[int]string{
	35: "#4dabe9", // Sjálfstæðisflokkur
	2:  "#19412c", // Framsóknarflokkur
	38: "#da3520", // Samfylkingin
	45: "#ee8532", // Viðreisn
	47: "#171f6a", // Flokkur fólksins
	46: "#f7cc5b", // Miðflokkurinn
}

// partyFoundings holds the founding dates of the parties with a known date
var partyFoundings = map[int]time.Time{
	35: time.Date(1929, time.May, 25, 0, 0, 0, 0, time.UTC),
	2:  time.Date(1916, time.December, 16, 0, 0, 0, 0, time.UTC),
	38: time.Date(2000, time.May, 5, 0, 0, 0, 0, time.UTC),
	45: time.Date(2016, time.May, 24, 0, 0, 0, 0, time.UTC),
}

// PartyFoundingDate returns the founding date of a party source id, if known
func PartyFoundingDate(sourceID int) (time.Time, bool) {
	t, ok := partyFoundings[sourceID]
	return t, ok
}

// PartyColor returns the display colour for a party source id
func PartyColor(sourceID int) string {
	if c, ok := partyColors[sourceID]; ok {
		return c
	}
	return DefaultPartyColor
}

// Party represents a parliamentary party
type Party struct {
	ID           int64
	SourceID     int
	Name         string
	Abbreviation string
	Description  string
	Color        string
	FoundingDate sql.NullTime
	UpdatedAt    time.Time
}

// PartyMeta represents a party entry from the parties feed
type PartyMeta struct {
	SourceID         int
	Name             string
	Abbreviation     string
	LongAbbreviation string
	FirstSession     int
	LastSession      int
}

// Description summarises the sessions the party sat in. session is used
// when the feed gives no first session.
func (m PartyMeta) Description(session int) string {
	var d string
	switch {
	case m.FirstSession > 0 && m.LastSession > 0:
		d = fmt.Sprintf("Þingflokkur á %d.-%d. löggjafarþingi", m.FirstSession, m.LastSession)
	case m.FirstSession > 0:
		d = fmt.Sprintf("Þingflokkur frá %d. löggjafarþingi", m.FirstSession)
	default:
		d = fmt.Sprintf("Þingflokkur á %d. löggjafarþingi", session)
	}
	if m.LongAbbreviation != "" && m.LongAbbreviation != m.Name {
		d = fmt.Sprintf("%s (%s)", d, m.LongAbbreviation)
	}
	return d
}
