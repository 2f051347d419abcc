// SPDX-License-Identifier: GPL-3.0-or-later
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mailwatch/mailwatch/domain"
	"github.com/mailwatch/mailwatch/domain/mocks"
	"github.com/mailwatch/mailwatch/log"
	"github.com/mailwatch/mailwatch/monitor"

	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

const watchedSubject = "Job Application Update"

func newTestServer(t *testing.T) (*gomock.Controller, *Server, *mocks.MockMailConnector, *mocks.MockClassifier, *mocks.MockNotifier, *mocks.MockLedger) {
	log.InitLogging("error")
	ctrl := gomock.NewController(t)

	conn := mocks.NewMockMailConnector(ctrl)
	classifier := mocks.NewMockClassifier(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	ledger := mocks.NewMockLedger(ctrl)

	mon, err := monitor.New(
		func() (domain.MailConnector, error) { return conn, nil },
		classifier,
		notifier,
		ledger,
		monitor.Subject(watchedSubject),
		monitor.Output(io.Discard),
	)
	assert.NoError(t, err)

	server := &Server{
		monitor:    mon,
		classifier: classifier,
		notifier:   notifier,
		l:          nullLogger(),
	}

	return ctrl, server, conn, classifier, notifier, ledger
}

func do(server *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if len(body) > 0 {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	server.Routes().ServeHTTP(rec, req)

	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	var resp messageResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	return resp.Message
}

func rawMail(from, subject, body string) []byte {
	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: hiring@example.com\r\nSubject: %s\r\nDate: Tue, 10 Jun 2025 14:30:00 +0000\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from, subject, body,
	))
}

func TestRoot(t *testing.T) {
	_, server, _, _, _, _ := newTestServer(t)

	rec := do(server, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email monitor is running")
}

func TestUnknownPath(t *testing.T) {
	_, server, _, _, _, _ := newTestServer(t)

	rec := do(server, http.MethodGet, "/does-not-exist", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodGuards(t *testing.T) {
	_, server, _, _, _, _ := newTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/read-emails"},
		{http.MethodGet, "/start-monitoring"},
		{http.MethodGet, "/stop-monitoring"},
		{http.MethodPost, "/monitoring-status"},
		{http.MethodGet, "/test-sound"},
		{http.MethodGet, "/test-openai"},
		{http.MethodPost, "/"},
	}
	for _, tc := range tests {
		t.Run(tc.method+tc.path, func(t *testing.T) {
			rec := do(server, tc.method, tc.path, "")
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		})
	}
}

func TestReadEmailsNoNewTwice(t *testing.T) {
	ctrl, server, conn, _, notifier, _ := newTestServer(t)
	defer ctrl.Finish()

	conn.EXPECT().Select(gomock.Eq("INBOX"), gomock.Eq(false)).Return(&domain.MailboxInfo{Name: "INBOX"}, nil).Times(2)
	conn.EXPECT().SearchUids(gomock.Any()).Return([]uint32{}, nil).Times(2)
	conn.EXPECT().Close().Return(nil).Times(2)
	// A manual cycle alerts even without new mail.
	notifier.EXPECT().Alert().Times(2)

	for i := 0; i < 2; i++ {
		rec := do(server, http.MethodPost, "/read-emails", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, "No new emails", message(t, rec))
	}
}

func TestReadEmailsProcessesNewMail(t *testing.T) {
	ctrl, server, conn, classifier, notifier, ledger := newTestServer(t)
	defer ctrl.Finish()

	conn.EXPECT().Select(gomock.Eq("INBOX"), gomock.Eq(false)).Return(&domain.MailboxInfo{Name: "INBOX", Messages: 1}, nil)
	conn.EXPECT().
		SearchUids(gomock.Eq(domain.SearchCriterion{UnseenOnly: true, Subject: watchedSubject})).
		Return([]uint32{42}, nil)
	ledger.EXPECT().Has(uint32(42)).Return(false)
	notifier.EXPECT().Alert()
	conn.EXPECT().
		FetchEach(gomock.Eq([]uint32{42}), gomock.Any()).
		DoAndReturn(func(uids []uint32, fn func(*domain.RawMessage)) error {
			fn(&domain.RawMessage{Uid: 42, Raw: rawMail("jane@example.org", watchedSubject, "Hello")})
			return nil
		})
	classifier.EXPECT().
		Classify(gomock.Eq("jane@example.org"), gomock.Eq(watchedSubject), gomock.Eq("Hello")).
		Return(&domain.Classification{Label: domain.HumanGenerated, Confidence: 75, Reasoning: "Personal tone."}, nil)
	ledger.EXPECT().Add(uint32(42))
	conn.EXPECT().Close().Return(nil)

	rec := do(server, http.MethodPost, "/read-emails", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Processed 1 message(s)", message(t, rec))
}

func TestReadEmailsReportsErrorInBand(t *testing.T) {
	_, server, _, _, _, _ := newTestServer(t)

	failing, err := monitor.New(
		func() (domain.MailConnector, error) {
			return nil, fmt.Errorf("could not dial imap.example.com:993: %w", domain.ErrConnectivity)
		},
		nil,
		nil,
		nil,
		monitor.Subject(watchedSubject),
		monitor.Output(io.Discard),
	)
	assert.NoError(t, err)
	server.monitor = failing

	rec := do(server, http.MethodPost, "/read-emails", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	msg := message(t, rec)
	assert.True(t, strings.HasPrefix(msg, "Error checking emails: "), msg)
	assert.Contains(t, msg, "could not dial")
}

func TestStartStopAndStatus(t *testing.T) {
	ctrl, server, conn, _, _, _ := newTestServer(t)
	defer ctrl.Finish()

	// Arming the scheduler triggers an immediate cycle.
	cycled := make(chan struct{})
	conn.EXPECT().Select(gomock.Eq("INBOX"), gomock.Eq(false)).Return(&domain.MailboxInfo{Name: "INBOX"}, nil)
	conn.EXPECT().
		SearchUids(gomock.Any()).
		DoAndReturn(func(domain.SearchCriterion) ([]uint32, error) {
			close(cycled)
			return []uint32{}, nil
		})
	conn.EXPECT().Close().Return(nil)

	var status statusResponse
	rec := do(server, http.MethodGet, "/monitoring-status", "")
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, statusResponse{Message: "Monitoring is stopped", IsMonitoring: false}, status)

	assert.Equal(t, "Monitoring started", message(t, do(server, http.MethodPost, "/start-monitoring", "")))
	assert.Equal(t, "Monitoring is already running", message(t, do(server, http.MethodPost, "/start-monitoring", "")))

	rec = do(server, http.MethodGet, "/monitoring-status", "")
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, statusResponse{Message: "Monitoring is active", IsMonitoring: true}, status)

	// Wait out the immediate cycle so every expected call lands before
	// the controller is checked.
	<-cycled
	assert.Eventually(t, func() bool { return server.monitor.State() == monitor.StateScheduled }, time.Second, time.Millisecond)

	assert.Equal(t, "Monitoring stopped", message(t, do(server, http.MethodPost, "/stop-monitoring", "")))
	assert.Equal(t, "Monitoring is not running", message(t, do(server, http.MethodPost, "/stop-monitoring", "")))

	rec = do(server, http.MethodGet, "/monitoring-status", "")
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, statusResponse{Message: "Monitoring is stopped", IsMonitoring: false}, status)
}

func TestTestSound(t *testing.T) {
	ctrl, server, _, _, notifier, _ := newTestServer(t)
	defer ctrl.Finish()

	notifier.EXPECT().Alert()

	rec := do(server, http.MethodPost, "/test-sound", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Sound alert triggered", message(t, rec))
}

func TestTestOpenAIPing(t *testing.T) {
	tests := []struct {
		name    string
		ok      bool
		err     error
		success bool
		message string
	}{
		{"passes", true, nil, true, "OpenAI connection test passed"},
		{"emptyresponse", false, nil, false, "OpenAI connection test failed: the model returned an empty response"},
		{"unreachable", false, fmt.Errorf("could not reach api.openai.com: %w", domain.ErrClassifierUnavailable), false, "Error testing OpenAI: could not reach api.openai.com: classifier unavailable"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl, server, _, classifier, _, _ := newTestServer(t)
			defer ctrl.Finish()

			classifier.EXPECT().TestConnection().Return(tc.ok, tc.err)

			rec := do(server, http.MethodPost, "/test-openai", "")

			var resp classifierTestResponse
			assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.success, resp.Success)
			assert.Equal(t, tc.message, resp.Message)
			assert.Nil(t, resp.Classification)
		})
	}
}

func TestTestOpenAIClassifiesDefaultSample(t *testing.T) {
	ctrl, server, _, classifier, _, _ := newTestServer(t)
	defer ctrl.Finish()

	classifier.EXPECT().
		Classify(gomock.Eq(sampleFrom), gomock.Eq(sampleSubject), gomock.Eq(sampleBody)).
		Return(&domain.Classification{
			Label:            domain.SystemGenerated,
			Confidence:       92,
			Reasoning:        "Automated notification.",
			SystemIndicators: []string{"noreply sender"},
		}, nil)

	rec := do(server, http.MethodPost, "/test-openai", "{}")

	var resp classifierTestResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "OpenAI API is working correctly", resp.Message)
	assert.Equal(t, &classificationJSON{
		Label:            "system-generated",
		Confidence:       92,
		Reasoning:        "Automated notification.",
		SystemIndicators: []string{"noreply sender"},
	}, resp.Classification)
}

func TestTestOpenAIClassifiesSuppliedSample(t *testing.T) {
	ctrl, server, _, classifier, _, _ := newTestServer(t)
	defer ctrl.Finish()

	// Absent fields fall back to the fixed sample.
	classifier.EXPECT().
		Classify(gomock.Eq("jane@example.org"), gomock.Eq(sampleSubject), gomock.Eq("Wrote this myself.")).
		Return(&domain.Classification{Label: domain.HumanGenerated, Confidence: 75, Reasoning: "Personal tone."}, nil)

	rec := do(server, http.MethodPost, "/test-openai", `{"from":"jane@example.org","body":"Wrote this myself."}`)

	var resp classifierTestResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "human-generated", resp.Classification.Label)
	assert.Equal(t, 75, resp.Classification.Confidence)
}

func TestTestOpenAIClassifyErrorInBand(t *testing.T) {
	ctrl, server, _, classifier, _, _ := newTestServer(t)
	defer ctrl.Finish()

	classifier.EXPECT().
		Classify(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("could not deserialize verdict: %w", domain.ErrMalformedResponse))

	rec := do(server, http.MethodPost, "/test-openai", "{}")

	var resp classifierTestResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Message, "Error testing OpenAI: "), resp.Message)
	assert.Nil(t, resp.Classification)
}

func TestTestOpenAIBadJSON(t *testing.T) {
	_, server, _, _, _, _ := newTestServer(t)

	rec := do(server, http.MethodPost, "/test-openai", "{not json")

	var resp classifierTestResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Message, "Error parsing request: "), resp.Message)
}

func nullLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
