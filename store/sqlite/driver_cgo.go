//go:build cgo_sqlite

package sqlite

import (
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

// dsn renders pragmas in mattn's _name=value form.
func dsn(path string, pragmas []pragma) string {
	if len(pragmas) == 0 {
		return path
	}
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_"+p.name, p.value)
	}
	return path + "?" + q.Encode()
}
