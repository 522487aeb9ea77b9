package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still attach /shutdown (needs srv).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	ih := IngestHandler{Reconciler: d.Reconciler, Hub: d.Hub}
	mux.HandleFunc("/ingest", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ih.Ingest,
	}))

	jh := JobsHandler{Consumer: d.Consumer, CfgVal: d.CfgVal}
	mux.HandleFunc("/jobs/next", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.Next,
	}))
	mux.HandleFunc("/jobs/consume", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: jh.Consume,
	}))

	swh := SweepHandler{Sweeper: d.Sweeper, Hub: d.Hub}
	mux.HandleFunc("/sweep", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: swh.Run,
	}))

	ph := PollHandler{Runner: d.Runner, CfgVal: d.CfgVal}
	mux.HandleFunc("/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ph.Status,
	}))
	mux.HandleFunc("/poll/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ph.Run,
	}))

	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))

	// Secrets (use cfgVal, NOT a snapshot cfg)
	sh := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/api/secrets/imap", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.SetIMAPPassword,
	}))

	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	hh := HealthHandler{}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	return mux
}
