// Package httpapi wires a runner.Runner to three HTTP endpoints:
//
//	GET  /healthz/  liveness, always 200 while the process is up
//	GET  /metrics/  Prometheus exposition via promhttp
//	POST /buffer/   accepts {"items": ["<base64>", ...]} and forwards to Buffer
//
// Usage:
//
//	api := &httpapi.API{Runner: r, RequestTimeout: 5 * time.Second}
//	handler := httpapi.NewRouter(api, httpapi.Config{CORSAllowedOrigins: []string{"*"}})
//	http.ListenAndServe(":8080", handler)
package httpapi
