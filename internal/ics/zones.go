package ics

import "strings"

// ZoneResolver maps a TZID to a fixed UTC offset string such as "-05:00".
type ZoneResolver interface {
	Offset(tzid string) (string, bool)
}

// ZoneTable is a static TZID to offset lookup.
type ZoneTable map[string]string

// Offset implements ZoneResolver. Entries with an empty offset are treated
// as unresolved.
func (z ZoneTable) Offset(tzid string) (string, bool) {
	off, ok := z[tzid]
	if !ok || off == "" {
		return "", false
	}
	return off, true
}

// tzidParam returns the TZID parameter with surrounding quotes removed.
// Exchange quotes Windows zone names that contain commas or colons.
func tzidParam(p Params) string {
	tz, ok := p.String("TZID")
	if !ok {
		return ""
	}
	if len(tz) >= 2 && strings.HasPrefix(tz, `"`) && strings.HasSuffix(tz, `"`) {
		tz = tz[1 : len(tz)-1]
	}
	return tz
}

// WindowsZones holds the standard-time offsets of the Windows zone names
// Exchange and Outlook put in TZID parameters. Daylight saving is not
// modelled. "UTC" carries no offset in the display name and stays
// unresolved, which yields floating-time interpretation.
var WindowsZones = ZoneTable{
	"Dateline Standard Time":          "-12:00",
	"UTC-11":                          "-11:00",
	"Hawaiian Standard Time":          "-10:00",
	"Alaskan Standard Time":           "-09:00",
	"Pacific Standard Time (Mexico)":  "-08:00",
	"Pacific Standard Time":           "-08:00",
	"US Mountain Standard Time":       "-07:00",
	"Mountain Standard Time (Mexico)": "-07:00",
	"Mountain Standard Time":          "-07:00",
	"Central America Standard Time":   "-06:00",
	"Central Standard Time":           "-06:00",
	"Central Standard Time (Mexico)":  "-06:00",
	"Canada Central Standard Time":    "-06:00",
	"SA Pacific Standard Time":        "-05:00",
	"Eastern Standard Time":           "-05:00",
	"US Eastern Standard Time":        "-05:00",
	"Venezuela Standard Time":         "-04:30",
	"Paraguay Standard Time":          "-04:00",
	"Atlantic Standard Time":          "-04:00",
	"Central Brazilian Standard Time": "-04:00",
	"SA Western Standard Time":        "-04:00",
	"Pacific SA Standard Time":        "-04:00",
	"Newfoundland Standard Time":      "-03:30",
	"E. South America Standard Time":  "-03:00",
	"Argentina Standard Time":         "-03:00",
	"SA Eastern Standard Time":        "-03:00",
	"Greenland Standard Time":         "-03:00",
	"Montevideo Standard Time":        "-03:00",
	"Bahia Standard Time":             "-03:00",
	"UTC-02":                          "-02:00",
	"Mid-Atlantic Standard Time":      "-02:00",
	"Azores Standard Time":            "-01:00",
	"Cape Verde Standard Time":        "-01:00",
	"Morocco Standard Time":           "+00:00",
	"UTC":                             "",
	"GMT Standard Time":               "+00:00",
	"Greenwich Standard Time":         "+00:00",
	"W. Europe Standard Time":         "+01:00",
	"Central Europe Standard Time":    "+01:00",
	"Romance Standard Time":           "+01:00",
	"Central European Standard Time":  "+01:00",
	"W. Central Africa Standard Time": "+01:00",
	"Namibia Standard Time":           "+01:00",
	"Jordan Standard Time":            "+02:00",
	"GTB Standard Time":               "+02:00",
	"Middle East Standard Time":       "+02:00",
	"Egypt Standard Time":             "+02:00",
	"Syria Standard Time":             "+02:00",
	"E. Europe Standard Time":         "+02:00",
	"South Africa Standard Time":      "+02:00",
	"FLE Standard Time":               "+02:00",
	"Turkey Standard Time":            "+02:00",
	"Israel Standard Time":            "+02:00",
	"Libya Standard Time":             "+02:00",
	"Arabic Standard Time":            "+03:00",
	"Kaliningrad Standard Time":       "+03:00",
	"Arab Standard Time":              "+03:00",
	"E. Africa Standard Time":         "+03:00",
	"Russian Standard Time":           "+03:00",
	"Iran Standard Time":              "+03:30",
	"Arabian Standard Time":           "+04:00",
	"Azerbaijan Standard Time":        "+04:00",
	"Mauritius Standard Time":         "+04:00",
	"Georgian Standard Time":          "+04:00",
	"Caucasus Standard Time":          "+04:00",
	"Afghanistan Standard Time":       "+04:30",
	"West Asia Standard Time":         "+05:00",
	"Ekaterinburg Standard Time":      "+05:00",
	"Pakistan Standard Time":          "+05:00",
	"India Standard Time":             "+05:30",
	"Sri Lanka Standard Time":         "+05:30",
	"Nepal Standard Time":             "+05:45",
	"Central Asia Standard Time":      "+06:00",
	"Bangladesh Standard Time":        "+06:00",
	"Myanmar Standard Time":           "+06:30",
	"SE Asia Standard Time":           "+07:00",
	"N. Central Asia Standard Time":   "+07:00",
	"China Standard Time":             "+08:00",
	"North Asia Standard Time":        "+08:00",
	"Singapore Standard Time":         "+08:00",
	"W. Australia Standard Time":      "+08:00",
	"Taipei Standard Time":            "+08:00",
	"Ulaanbaatar Standard Time":       "+08:00",
	"North Asia East Standard Time":   "+09:00",
	"Tokyo Standard Time":             "+09:00",
	"Korea Standard Time":             "+09:00",
	"Cen. Australia Standard Time":    "+09:30",
	"AUS Central Standard Time":       "+09:30",
	"E. Australia Standard Time":      "+10:00",
	"AUS Eastern Standard Time":       "+10:00",
	"West Pacific Standard Time":      "+10:00",
	"Tasmania Standard Time":          "+10:00",
	"Yakutsk Standard Time":           "+10:00",
	"Central Pacific Standard Time":   "+11:00",
	"Vladivostok Standard Time":       "+11:00",
	"New Zealand Standard Time":       "+12:00",
	"UTC+12":                          "+12:00",
	"Fiji Standard Time":              "+12:00",
	"Magadan Standard Time":           "+12:00",
	"Tonga Standard Time":             "+13:00",
	"Samoa Standard Time":             "+13:00",
}
