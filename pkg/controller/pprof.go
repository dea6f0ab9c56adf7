package controller

import (
	"net/http"
	"net/http/pprof"
)

// PprofMux exposes the runtime profiling endpoints on their own mux so the
// status server can mount them under a debug prefix, away from the scan API.
func PprofMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)

	return mux
}
