package commands

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// brandNames holds display names that title casing gets wrong.
var brandNames = map[string]string{
	"bigquery": "BigQuery",
	"postgres": "PostgreSQL",
}

var titleCaser = cases.Title(language.English)

// displayName turns a registry name into a heading: "json_postgres"
// becomes "Json Postgres".
func displayName(name string) string {
	if brand, ok := brandNames[name]; ok {
		return brand
	}
	out := []rune(name)
	for i, r := range out {
		if r == '_' {
			out[i] = ' '
		}
	}
	return titleCaser.String(string(out))
}
