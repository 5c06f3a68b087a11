//go:build !cgo_sqlite

package sqlite

import (
	"net/url"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// dsn renders pragmas in modernc's _pragma=name(value) form.
func dsn(path string, pragmas []pragma) string {
	if len(pragmas) == 0 {
		return path
	}
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p.name+"("+p.value+")")
	}
	return path + "?" + q.Encode()
}
