package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	am "github.com/ztkent/ambient-meter/internal/ambientmeter"
	"github.com/ztkent/ambient-meter/internal/tools"
	"github.com/ztkent/ambient-meter/veml7700"
)

/*
	This is the primary entry point for the Ambient Meter application.
	It should be running at startup, on a Raspberry Pi, with the VEML7700 sensor connected.
*/

func main() {
	pid := os.Getpid()
	log.Println("AmbientMeter [" + fmt.Sprintf("%d", pid) + "]")

	// connect to the lux sensor
	device, err := veml7700.NewVEML7700("/dev/i2c-1", veml7700.VEML7700_ADDR)
	if err != nil {
		log.Fatalf("Failed to connect to the VEML7700 sensor: %v", err)
	}

	// connect to the sqlite database
	amDB, err := tools.ConnectSqlite(am.DB_PATH)
	if err != nil {
		// Unlike connecting to the sensor, this should always work.
		log.Fatalf("Failed to connect to the sqlite database: %v", err)
	}

	// Initialize router
	r := chi.NewRouter()
	// Log requests and recover from panics
	r.Use(middleware.Logger)
	r.Use(handleServerPanic)

	// Define routes
	defineRoutes(r, &am.Meter{
		VEML7700:       device,
		ResultsDB:      amDB,
		LuxResultsChan: make(chan am.LuxResults),
		Pid:            pid,
	})

	if os.Getenv("SSL") == "true" {
		// Generate a self-signed certificate if one doesn't exist
		tools.EnsureCertificate("cert.pem", "key.pem")

		// Start server
		app_port := "443"
		certPath := "cert.pem"
		keyPath := "key.pem"

		log.Printf("Starting HTTPS server on port %s", app_port)
		err = http.ListenAndServeTLS(":"+app_port, certPath, keyPath, r)
		if err != nil {
			log.Fatalf("Failed to start HTTPS server: %v", err)
		}
	} else {
		// Start server
		app_port := "80"
		log.Printf("Starting HTTP server on port %s", app_port)
		err = http.ListenAndServe(":"+app_port, r)
		if err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}

	return
}

func defineRoutes(r *chi.Mux, meter *am.Meter) {
	// Listen for any result messages from our jobs, record them in sqlite
	go meter.MonitorAndRecordResults()

	// Ambient Meter Dashboard Controls
	r.Get("/", meter.ServeDashboard())
	r.Route("/ambientmeter", func(r chi.Router) {
		r.Get("/start", meter.Start())
		r.Get("/stop", meter.Stop())
		r.Get("/signal-strength", meter.SignalStrength())
		r.Get("/current-conditions", meter.CurrentConditions())
		r.Get("/export", meter.ServeResultsDB())
		r.Post("/graph", meter.ServeResultsGraph())
		r.Get("/controls", meter.ServeMeterControls())
		r.Get("/status", meter.ServeSensorStatus())
		r.Post("/results", meter.ServeResultsTab())
		r.Get("/clear", meter.Clear())
	})

	// Ambient Meter API, these serve a JSON response
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/start", meter.Start())
		r.Get("/stop", meter.Stop())
		r.Get("/signal-strength", meter.SignalStrength())
		r.Get("/current-conditions", meter.CurrentConditions())
		r.Get("/export", meter.ServeResultsDB())
	})

	// Route for service identification
	r.Get("/id", func(w http.ResponseWriter, r *http.Request) {
		response := struct {
			ServiceName string `json:"service_name"`
		}{
			ServiceName: "Ambient Meter",
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	})
}

func handleServerPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				am.ServeResponse(w, r, (fmt.Sprintf("%v", err)), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
