package contract

import (
	"fmt"
	"sort"
)

// Predefined patterns usable from contracts.
const (
	PatternTrueOrFalse      = `(true|false)`
	PatternAlphaNumeric     = `[a-zA-Z0-9]+`
	PatternOnlyAlphaUnicode = `[\p{L}]*`
	PatternNumber           = `-?(\d*\.\d+|\d+)`
	PatternInteger          = `-?(\d+)`
	PatternPositiveInt      = `([1-9]\d*)`
	PatternDouble           = `-?(\d*\.\d+)`
	PatternHex              = `[a-fA-F0-9]+`
	PatternUUID             = `[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`
	PatternISODate          = `(\d\d\d\d)-(0[1-9]|1[012])-(0[1-9]|[12][0-9]|3[01])`
	PatternISODateTime      = `([0-9]{4})-(1[0-2]|0[1-9])-(3[01]|0[1-9]|[12][0-9])T(2[0-3]|[01][0-9]):([0-5][0-9]):([0-5][0-9])`
	PatternISOTime          = `(2[0-3]|[01][0-9]):([0-5][0-9]):([0-5][0-9])`
	PatternISO8601Offset    = `([0-9]{4})-(1[0-2]|0[1-9])-(3[01]|0[1-9]|[12][0-9])T(2[0-3]|[01][0-9]):([0-5][0-9]):([0-5][0-9])(\.\d{1,6})?(Z|[+-][01]\d:[0-5]\d)`
	PatternNonEmpty         = `[\S\s]+`
	PatternNonBlank         = `^\s*\S[\S\s]*`
	PatternIPAddress        = `([01]?\d\d?|2[0-4]\d|25[0-5])\.([01]?\d\d?|2[0-4]\d|25[0-5])\.([01]?\d\d?|2[0-4]\d|25[0-5])\.([01]?\d\d?|2[0-4]\d|25[0-5])`
	PatternHostname         = `((http[s]?|ftp):/)/?([^:/\s]+)(:[0-9]{1,5})?`
	PatternEmail            = `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,6}`
	PatternURL              = `(https?|ftp|file)://[-a-zA-Z0-9+&@#/%?=~_|!:,.;]*[-a-zA-Z0-9+&@#/%=~_|]`
)

var predefined = map[string]string{
	"only_alpha_unicode":   PatternOnlyAlphaUnicode,
	"alpha_numeric":        PatternAlphaNumeric,
	"number":               PatternNumber,
	"integer":              PatternInteger,
	"positive_int":         PatternPositiveInt,
	"any_double":           PatternDouble,
	"any_boolean":          PatternTrueOrFalse,
	"hex":                  PatternHex,
	"ip_address":           PatternIPAddress,
	"hostname":             PatternHostname,
	"email":                PatternEmail,
	"url":                  PatternURL,
	"uuid":                 PatternUUID,
	"iso_date":             PatternISODate,
	"iso_date_time":        PatternISODateTime,
	"iso_time":             PatternISOTime,
	"iso_8601_with_offset": PatternISO8601Offset,
	"non_empty":            PatternNonEmpty,
	"non_blank":            PatternNonBlank,
}

// Predefined returns the pattern registered under name.
func Predefined(name string) (string, error) {
	p, ok := predefined[name]
	if !ok {
		return "", fmt.Errorf("unknown predefined regex %q", name)
	}
	return p, nil
}

// PredefinedNames lists the registered pattern names in sorted order.
func PredefinedNames() []string {
	names := make([]string, 0, len(predefined))
	for name := range predefined {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
