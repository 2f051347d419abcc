// SPDX-License-Identifier: GPL-3.0-or-later

// Package server exposes the HTTP control surface of a running monitor.
// All documented outcomes answer with HTTP 200 and report errors in-band,
// so callers only need to look at the JSON body.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mailwatch/mailwatch/domain"
	"github.com/mailwatch/mailwatch/log"
	"github.com/mailwatch/mailwatch/monitor"

	"github.com/sirupsen/logrus"
)

// Sample mail classified by the test endpoint when the caller supplies none.
const (
	sampleFrom    = "noreply@company.com"
	sampleSubject = "Job Application Update"
	sampleBody    = "Thank you for your application. We have received your submission and will review it shortly."
)

type Server struct {
	monitor    *monitor.Monitor
	classifier domain.Classifier
	notifier   domain.Notifier
	httpServer *http.Server
	l          *logrus.Logger
}

type messageResponse struct {
	Message string `json:"message"`
}

type statusResponse struct {
	Message      string `json:"message"`
	IsMonitoring bool   `json:"isMonitoring"`
}

type classifierTestRequest struct {
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type classifierTestResponse struct {
	Success        bool                `json:"success"`
	Message        string              `json:"message"`
	Classification *classificationJSON `json:"classification,omitempty"`
}

type classificationJSON struct {
	Label            string   `json:"label"`
	Confidence       int      `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	SystemIndicators []string `json:"systemIndicators,omitempty"`
	HumanIndicators  []string `json:"humanIndicators,omitempty"`
}

func New(addr string, monitor *monitor.Monitor, classifier domain.Classifier, notifier domain.Notifier) *Server {
	server := &Server{
		monitor:    monitor,
		classifier: classifier,
		notifier:   notifier,
		l:          log.Logger(log.LOG_HTTP),
	}
	server.httpServer = &http.Server{Addr: addr, Handler: server.Routes()}

	return server
}

// Routes wires every control endpoint onto a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/read-emails", s.handleReadEmails)
	mux.HandleFunc("/start-monitoring", s.handleStartMonitoring)
	mux.HandleFunc("/stop-monitoring", s.handleStopMonitoring)
	mux.HandleFunc("/monitoring-status", s.handleMonitoringStatus)
	mux.HandleFunc("/test-sound", s.handleTestSound)
	mux.HandleFunc("/test-openai", s.handleTestOpenAI)

	return mux
}

func (s *Server) ListenAndServe() error {
	s.l.Infof("Control surface listening on %v", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	// The root pattern catches every path no other handler claims.
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	fmt.Fprintln(w, "Email monitor is running")
}

func (s *Server) handleReadEmails(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	s.l.Info("Manual cycle requested")
	stats, err := s.monitor.RunOnce(true)
	if err != nil {
		s.writeJSON(w, messageResponse{Message: fmt.Sprintf("Error checking emails: %v", err)})
		return
	}

	if stats.New == 0 {
		s.writeJSON(w, messageResponse{Message: "No new emails"})
		return
	}

	s.writeJSON(w, messageResponse{Message: fmt.Sprintf("Processed %d message(s)", stats.Processed)})
}

func (s *Server) handleStartMonitoring(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.monitor.Start() {
		s.writeJSON(w, messageResponse{Message: "Monitoring is already running"})
		return
	}

	s.l.Info("Monitoring started via control surface")
	s.writeJSON(w, messageResponse{Message: "Monitoring started"})
}

func (s *Server) handleStopMonitoring(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.monitor.Stop() {
		s.writeJSON(w, messageResponse{Message: "Monitoring is not running"})
		return
	}

	s.l.Info("Monitoring stopped via control surface")
	s.writeJSON(w, messageResponse{Message: "Monitoring stopped"})
}

func (s *Server) handleMonitoringStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	running := s.monitor.IsRunning()
	message := "Monitoring is stopped"
	if running {
		message = "Monitoring is active"
	}

	s.writeJSON(w, statusResponse{Message: message, IsMonitoring: running})
}

func (s *Server) handleTestSound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	s.notifier.Alert()
	s.writeJSON(w, messageResponse{Message: "Sound alert triggered"})
}

// handleTestOpenAI pings the classifier backend. Without a body it runs a
// plain connectivity check, with a body it classifies the supplied sample
// mail, defaulting absent fields.
func (s *Server) handleTestOpenAI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeJSON(w, classifierTestResponse{Success: false, Message: fmt.Sprintf("Error reading request: %v", err)})
		return
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		s.testConnection(w)
		return
	}

	var req classifierTestRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.writeJSON(w, classifierTestResponse{Success: false, Message: fmt.Sprintf("Error parsing request: %v", err)})
		return
	}
	if len(req.From) == 0 {
		req.From = sampleFrom
	}
	if len(req.Subject) == 0 {
		req.Subject = sampleSubject
	}
	if len(req.Body) == 0 {
		req.Body = sampleBody
	}

	classification, err := s.classifier.Classify(req.From, req.Subject, req.Body)
	if err != nil {
		s.l.Warnf("Classifier test failed: %v", err)
		s.writeJSON(w, classifierTestResponse{Success: false, Message: fmt.Sprintf("Error testing OpenAI: %v", err)})
		return
	}

	s.writeJSON(w, classifierTestResponse{
		Success: true,
		Message: "OpenAI API is working correctly",
		Classification: &classificationJSON{
			Label:            string(classification.Label),
			Confidence:       classification.Confidence,
			Reasoning:        classification.Reasoning,
			SystemIndicators: classification.SystemIndicators,
			HumanIndicators:  classification.HumanIndicators,
		},
	})
}

func (s *Server) testConnection(w http.ResponseWriter) {
	ok, err := s.classifier.TestConnection()
	if err != nil {
		s.l.Warnf("Classifier connection test failed: %v", err)
		s.writeJSON(w, classifierTestResponse{Success: false, Message: fmt.Sprintf("Error testing OpenAI: %v", err)})
		return
	}
	if !ok {
		s.writeJSON(w, classifierTestResponse{Success: false, Message: "OpenAI connection test failed: the model returned an empty response"})
		return
	}

	s.writeJSON(w, classifierTestResponse{Success: true, Message: "OpenAI connection test passed"})
}

func (s *Server) writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.l.Warnf("Could not encode response: %v", err)
	}
}
