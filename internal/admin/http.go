package admin

import (
	"errors"
	"net/http"
	"strings"
)

// CallerHeader carries the caller id checked against the allow-list.
const CallerHeader = "X-Caller-ID"

// Handler exposes the dispatcher over HTTP. Commands are POSTed to
// /admin/<command>; arguments ride the "arg" query parameter (repeatable).
func (d *Dispatcher) Handler(prefix string) http.Handler {
	if prefix == "" {
		prefix = "/admin/"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		command := strings.TrimPrefix(r.URL.Path, prefix)
		command = strings.Trim(command, "/")
		if command == "" {
			http.Error(w, "missing command", http.StatusBadRequest)
			return
		}

		caller := r.Header.Get(CallerHeader)
		args := r.URL.Query()["arg"]

		result, err := d.Execute(caller, command, args)
		switch {
		case errors.Is(err, ErrUnauthorized):
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		case errors.Is(err, ErrUnknownCommand):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(result + "\n"))
	})
}
