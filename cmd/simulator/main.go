package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-rental/internal/auth"
	"github.com/ukydev/fleet-rental/internal/models"
)

// SimConfig describes one contention run: Workers renters race for the same vehicle and window.
type SimConfig struct {
	APIURL    string
	Secret    string
	VehicleID string
	ModelID   string
	BranchID  string
	Workers   int
	Start     time.Time
	Days      int
}

// Endpoint is a pickup or dropoff in a booking request.
type Endpoint struct {
	BranchID string    `json:"branch_id"`
	At       time.Time `json:"at"`
}

// Booking is the body of POST /reservations.
type Booking struct {
	VehicleModelID string   `json:"vehicle_model_id"`
	VehicleID      string   `json:"vehicle_id"`
	Pickup         Endpoint `json:"pickup"`
	Dropoff        Endpoint `json:"dropoff"`
	CreatedChannel string   `json:"created_channel"`
}

// Outcome of a single booking attempt.
type Outcome struct {
	Renter string
	Status int
	Code   string
	Err    error
}

// Summary counts the outcomes of a run.
type Summary struct {
	Created   int
	Conflicts int
	Failures  int
	Codes     []string
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Data    struct {
		Code string `json:"code"`
	} `json:"data"`
}

func booking(cfg SimConfig) Booking {
	end := cfg.Start.Add(time.Duration(cfg.Days) * 24 * time.Hour)
	return Booking{
		VehicleModelID: cfg.ModelID,
		VehicleID:      cfg.VehicleID,
		Pickup:         Endpoint{BranchID: cfg.BranchID, At: cfg.Start},
		Dropoff:        Endpoint{BranchID: cfg.BranchID, At: end},
		CreatedChannel: "web",
	}
}

func renterToken(tokens *auth.Service, renterID string) (string, error) {
	return tokens.GenerateToken(&models.Actor{
		ID:     renterID,
		Roles:  []models.Role{models.RoleCustomer},
		Status: models.UserActive,
	})
}

func attempt(ctx context.Context, client *http.Client, apiURL, token string, b Booking) (int, envelope, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return 0, envelope{}, fmt.Errorf("failed to marshal booking: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/reservations", bytes.NewReader(data))
	if err != nil {
		return 0, envelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		return 0, envelope{}, fmt.Errorf("failed to send booking: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return resp.StatusCode, envelope{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, env, nil
}

// Simulate fires cfg.Workers bookings at once and tallies the results.
func Simulate(ctx context.Context, cfg SimConfig) (Summary, error) {
	if cfg.Workers <= 0 {
		return Summary{}, fmt.Errorf("workers must be positive")
	}
	tokens := auth.NewService(cfg.Secret, time.Hour)
	client := &http.Client{Timeout: 10 * time.Second}
	body := booking(cfg)

	outcomes := make([]Outcome, cfg.Workers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		renter := fmt.Sprintf("sim-renter-%d", i+1)
		token, err := renterToken(tokens, renter)
		if err != nil {
			return Summary{}, fmt.Errorf("sign token: %w", err)
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			status, env, err := attempt(ctx, client, cfg.APIURL, token, body)
			outcomes[i] = Outcome{Renter: renter, Status: status, Code: env.Code, Err: err}
			if err == nil && status == http.StatusCreated {
				outcomes[i].Code = env.Data.Code
			}
		}(i)
	}
	close(start)
	wg.Wait()

	var sum Summary
	for _, o := range outcomes {
		fields := log.Fields{"renter": o.Renter, "status": o.Status, "code": o.Code}
		switch {
		case o.Err != nil:
			sum.Failures++
			log.WithError(o.Err).WithFields(fields).Warn("Booking attempt failed")
		case o.Status == http.StatusCreated:
			sum.Created++
			sum.Codes = append(sum.Codes, o.Code)
			log.WithFields(fields).Info("Booking created")
		case o.Status == http.StatusConflict:
			sum.Conflicts++
			log.WithFields(fields).Debug("Booking rejected")
		default:
			sum.Failures++
			log.WithFields(fields).Warn("Unexpected booking response")
		}
	}
	return sum, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	workers := 20
	if v := os.Getenv("SIM_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			workers = n
		}
	}
	days := 3
	if v := os.Getenv("SIM_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}

	cfg := SimConfig{
		APIURL:    getenv("API_BASE_URL", "http://localhost:8080/api"),
		Secret:    os.Getenv("JWT_SECRET"),
		VehicleID: getenv("SIM_VEHICLE_ID", "V1"),
		ModelID:   getenv("SIM_MODEL_ID", "M1"),
		BranchID:  getenv("SIM_BRANCH_ID", "B1"),
		Workers:   workers,
		Start:     time.Now().UTC().Add(7 * 24 * time.Hour).Truncate(time.Hour),
		Days:      days,
	}

	log.WithFields(log.Fields{
		"api_url":    cfg.APIURL,
		"vehicle_id": cfg.VehicleID,
		"workers":    cfg.Workers,
		"start":      cfg.Start,
	}).Info("Starting booking contention run")

	sum, err := Simulate(context.Background(), cfg)
	if err != nil {
		log.WithError(err).Fatal("Simulation failed")
	}
	log.WithFields(log.Fields{
		"created":   sum.Created,
		"conflicts": sum.Conflicts,
		"failures":  sum.Failures,
		"codes":     sum.Codes,
	}).Info("Simulation finished")
	if sum.Created > 1 {
		log.Fatal("More than one overlapping booking was accepted")
	}
}
