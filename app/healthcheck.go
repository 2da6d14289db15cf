package main

import (
	"context"
	"net/http"
	"time"
)

// healthCheckHandler reports the build and pings every dependency registered in app.checks.
func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(app.checks))
	for name, ping := range app.checks {
		if err := ping(ctx); err != nil {
			app.logError(r, err)
			deps[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "available"
	}

	env := envelope{
		"status": "available",
		"system_info": map[string]string{
			"environment": app.config.Environment,
			"version":     app.config.Version,
		},
		"dependencies": deps,
	}
	if status != http.StatusOK {
		env["status"] = "degraded"
	}

	err := app.writeJSON(w, status, env, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
