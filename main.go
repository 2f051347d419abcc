// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mailwatch/mailwatch/classifier/openai"
	"github.com/mailwatch/mailwatch/config"
	"github.com/mailwatch/mailwatch/domain"
	"github.com/mailwatch/mailwatch/imapconnection"
	"github.com/mailwatch/mailwatch/ledger"
	"github.com/mailwatch/mailwatch/log"
	"github.com/mailwatch/mailwatch/monitor"
	"github.com/mailwatch/mailwatch/notifier"
	"github.com/mailwatch/mailwatch/server"

	"github.com/sirupsen/logrus"
)

func main() {
	log.InitLogging("debug")
	logger := log.Logger(log.LOG_MAIN)

	conf, err := config.Load()
	if err != nil {
		logger.WithField("error", err).Fatal("Could not load config")
	}

	log.SetLogLevel(conf.Loglevel)

	processed := ledger.New()
	alerts := notifier.NewNotifier(os.Stdout)
	classifier := openai.NewOpenAI(conf.OpenAIBaseURL, conf.OpenAIKey, conf.OpenAIModel)

	connect := func() (domain.MailConnector, error) {
		return imapconnection.Connect(conf.ImapAddr(), conf.EmailTLS, conf.EmailUser, conf.EmailPassword)
	}

	configs := []monitor.ConfigFunc{
		monitor.Interval(conf.PollInterval),
		monitor.Subject(conf.WatchSubject),
		monitor.Mailbox(conf.Mailbox),
	}
	if conf.MarkSeen {
		configs = append(configs, monitor.MarkSeen())
	}

	mon, err := monitor.New(connect, classifier, alerts, processed, configs...)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not start monitor")
	}

	srv := server.New(conf.ListenAddr(), mon, classifier, alerts)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithField("error", err).Fatal("Control surface failed")
		}
	}()

	logger.WithFields(logrus.Fields{
		"subject": conf.WatchSubject,
		"mailbox": conf.Mailbox,
		"port":    conf.Port,
	}).Info("Ready, arm monitoring via the control surface")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.WithField("signal", sig).Info("Shutting down")

	mon.Stop()
	alerts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithField("error", err).Warn("Could not shut down control surface cleanly")
	}
}
