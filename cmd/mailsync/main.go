package main

import (
	"context"
	"flag"
	"fmt"
	"net/mail"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/syncgw/mail-bundle/internal/attach"
	"github.com/syncgw/mail-bundle/internal/config"
	"github.com/syncgw/mail-bundle/internal/mailbox"
	"github.com/syncgw/mail-bundle/internal/session"
	"github.com/syncgw/mail-bundle/internal/transport"
)

var (
	version     = "dev"
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("mailsync version %s\n", version)
		os.Exit(0)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.Info("Starting mail sync")

	store, err := attach.OpenSQLite(cfg.AttachPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open attachment store")
	}
	defer store.Close()

	mbx, err := transport.DialIMAP(transport.IMAPConfig{
		Host:     cfg.IMAPHost,
		Port:     cfg.IMAPPort,
		Username: cfg.IMAPUsername,
		Password: cfg.IMAPPassword,
		Timeout:  cfg.ConnTimeout,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to mailbox")
	}

	sender := transport.NewSMTPSender(transport.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		Timeout:  cfg.ConnTimeout,
	}, logger)

	sess, err := session.New(mbx, sender, store, mailbox.SpecialFolders{
		Trash:  cfg.TrashPath,
		Drafts: cfg.DraftsPath,
		Sent:   cfg.SentPath,
		Spam:   cfg.SpamPath,
	}, mail.Address{Address: cfg.Address}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create session")
	}
	defer sess.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := sess.Refresh(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to refresh folder tree")
	}

	groups, err := sess.Groups(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to list groups")
	}
	messages := 0
	for _, g := range groups {
		ids, err := sess.Records(ctx, g.ExtID)
		if err != nil {
			logger.WithError(err).WithField("group", g.ExtID).Warn("Group not loadable")
			continue
		}
		messages += len(ids)
	}
	logger.WithFields(logrus.Fields{
		"folders": len(groups),
		"records": messages,
		"version": version,
	}).Info("Mailbox synchronized")

	<-ctx.Done()
	logger.Info("Shutting down")
}
