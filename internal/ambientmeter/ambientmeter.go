package ambientmeter

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"math"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ztkent/ambient-meter/veml7700"
)

//go:embed html/*
var templateFiles embed.FS

type Meter struct {
	*veml7700.VEML7700
	LuxResultsChan chan LuxResults
	ResultsDB      *sql.DB
	cancel         context.CancelFunc
	Pid            int

	mu      sync.Mutex
	running bool
}

type LuxResults struct {
	Lux     float64
	Ambient uint16
	White   uint16
	JobID   string
}

type Conditions struct {
	JobID                 string  `json:"jobID"`
	Lux                   float64 `json:"lux"`
	Ambient               float64 `json:"ambient"`
	White                 float64 `json:"white"`
	DateRange             string  `json:"dateRange"`
	RecordedHoursInRange  float64 `json:"recordedHoursInRange"`
	FullSunlightInRange   float64 `json:"fullSunlightInRange"`
	LightConditionInRange string  `json:"lightConditionInRange"`
	AverageLuxInRange     float64 `json:"averageLuxInRange"`
}

const (
	MAX_JOB_DURATION = 8 * time.Hour
	RECORD_INTERVAL  = 30 * time.Second
	DB_PATH          = "ambientmeter.db"
)

func (m *Meter) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Meter) setRunning(running bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = running
}

// Start the sensor, and collect data in a loop
func (m *Meter) Start() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Println("It's going to be a bright day!")
		if m.VEML7700 == nil {
			ServeResponse(w, r, "The sensor is not connected", http.StatusBadRequest)
			return
		} else if m.IsRunning() {
			ServeResponse(w, r, "The sensor is already started", http.StatusBadRequest)
			return
		}

		go func() {
			// Create a new context with a timeout to manage the sensor lifecycle
			ctx, cancel := context.WithTimeout(context.Background(), MAX_JOB_DURATION)
			m.cancel = cancel

			// Power the sensor on for the duration of the job
			m.setRunning(true)
			defer m.setRunning(false)
			if err := m.PowerOn(); err != nil {
				log.Println(fmt.Sprintf("The sensor failed to power on: %s", err.Error()))
				return
			}
			defer m.Shutdown()

			jobID := uuid.New().String()
			ticker := time.NewTicker(RECORD_INTERVAL)
			for {
				// Check if we've cancelled this job.
				select {
				case <-ctx.Done():
					log.Println("Job Cancelled, stopping sensor")
					return
				default:
				}

				// Read the sensor
				lux, err := m.GetLux()
				if err != nil {
					log.Println(fmt.Sprintf("The sensor failed to read lux: %s", err.Error()))
					if errors.Is(err, veml7700.ErrInvalidDeviceState) {
						log.Println("Attempting to set new optimal sensor gain")
						if err := m.SetOptimalGain(); err != nil {
							log.Println(fmt.Sprintf("The sensor failed to determine new optimal gain: %s", err.Error()))
						} else {
							log.Println("The sensor has been reconfigured with a new optimal gain")
						}
					}
					m.LuxResultsChan <- LuxResults{
						JobID: jobID,
					}
					<-ticker.C
					continue
				}

				// Send the results to the LuxResultsChan
				m.LuxResultsChan <- LuxResults{
					Lux:     lux,
					Ambient: m.AmbientLight(),
					White:   m.WhiteLevel(),
					JobID:   jobID,
				}
				<-ticker.C
			}
		}()
		w.WriteHeader(http.StatusOK)
		ServeResponse(w, r, "Ambient Reading Started", http.StatusOK)
		return
	}
}

// Stop the sensor, and cancel the job context
func (m *Meter) Stop() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.VEML7700 == nil {
			ServeResponse(w, r, "The sensor is not connected", http.StatusBadRequest)
			return
		} else if !m.IsRunning() {
			ServeResponse(w, r, "The sensor is already stopped", http.StatusBadRequest)
			return
		}

		// Cancel the job context, the job shuts the sensor down on exit
		m.cancel()

		w.WriteHeader(http.StatusOK)
		ServeResponse(w, r, "Ambient Reading Stopped", http.StatusOK)
		return
	}
}

// Serve data about the most recent entry saved to the db
func (m *Meter) CurrentConditions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.VEML7700 == nil {
			ServeResponse(w, r, "The sensor is not connected", http.StatusBadRequest)
			return
		} else if !m.IsRunning() {
			ServeResponse(w, r, "The sensor is not enabled", http.StatusBadRequest)
			return
		}
		conditions, err := m.getCurrentConditions()
		if err != nil {
			log.Println(err)
			ServeResponse(w, r, err.Error(), http.StatusInternalServerError)
			return
		}

		conditionsData, err := json.Marshal(conditions)
		if err != nil {
			log.Println(err)
			ServeResponse(w, r, err.Error(), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		ServeResponse(w, r, string(conditionsData), http.StatusOK)
		return
	}
}

// Return the most recent entry saved to the db
func (m *Meter) getCurrentConditions() (Conditions, error) {
	if m.VEML7700 == nil || !m.IsRunning() {
		return Conditions{}, nil
	}
	conditions := Conditions{}
	row := m.ResultsDB.QueryRow("SELECT job_id, lux, ambient_count, white_count FROM ambient ORDER BY id DESC LIMIT 1")
	err := row.Scan(&conditions.JobID, &conditions.Lux, &conditions.Ambient, &conditions.White)
	if err != nil {
		log.Println(err)
		return Conditions{}, err
	}
	return conditions, nil
}

// Check the signal strength of the wifi connection
func (m *Meter) SignalStrength() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd := exec.Command("sh", "-c", "iw dev wlan0 link | grep 'signal:' | awk '{print $2}'")
		output, err := cmd.Output()
		if err != nil {
			log.Println(err)
			ServeResponse(w, r, err.Error(), http.StatusInternalServerError)
			return
		}
		signalInt, err := strconv.Atoi(strings.TrimSpace(string(output)))
		if err != nil {
			ServeResponse(w, r, "Device is not connected to a network", http.StatusBadRequest)
			return
		}

		// Convert the signal to a strength value
		// https://git.openwrt.org/?p=project/iwinfo.git;a=blob;f=iwinfo_nl80211.c;hb=HEAD#l2885
		if signalInt < -110 {
			signalInt = -110
		} else if signalInt > -40 {
			signalInt = -40
		}

		// Scale the signal to a percentage
		strength := (signalInt + 110) * 100 / 70
		if strength < 0 {
			strength = 0
		} else if strength > 100 {
			strength = 100
		}

		log.Println("Signal: ", fmt.Sprintf("%d", signalInt), " dBm")
		log.Println("Strength: ", strength, "%")

		w.WriteHeader(http.StatusOK)
		ServeResponse(w, r, "Signal Strength: "+fmt.Sprintf("%d", signalInt)+" dBm\nQuality: "+fmt.Sprintf("%d", strength)+"%", http.StatusOK)
		return
	}
}

// Populate the response div with a message, or reply with a JSON message
func ServeResponse(w http.ResponseWriter, r *http.Request, message string, status int) {
	if strings.Contains(r.URL.Path, "/api/v1/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"message": message})
		return
	}

	tmpl, err := parseTemplateFile("html/response.gohtml")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	err = tmpl.Execute(w, message)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func parseTemplateFile(path string) (*template.Template, error) {
	content, err := templateFiles.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to read embedded template: %v", err)
	}

	tmpl, err := template.New("results").Parse(string(content))
	if err != nil {
		log.Fatalf("failed to parse template: %v", err)
	}
	return tmpl, nil
}

// Read from LuxResultsChan, write the results to sqlite
func (m *Meter) MonitorAndRecordResults() {
	log.Println("Monitoring for new Ambient Messages...")
	for {
		select {
		case result := <-m.LuxResultsChan:
			log.Println(fmt.Sprintf("- JobID: %s, Lux: %.5f", result.JobID, result.Lux))
			if math.IsInf(result.Lux, 1) || result.Ambient == veml7700.VEML7700_VALUE_ERROR {
				log.Println("Reading is invalid, skipping record")
				continue
			}
			_, err := m.ResultsDB.Exec(
				"INSERT INTO ambient (job_id, lux, ambient_count, white_count) VALUES (?, ?, ?, ?)",
				result.JobID,
				fmt.Sprintf("%.5f", result.Lux),
				result.Ambient,
				result.White,
			)
			if err != nil {
				log.Println(err)
			}
		}
	}
}
