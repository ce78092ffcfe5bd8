package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mail-auto-ticketing/internal/automation"
	"mail-auto-ticketing/internal/config"
	"mail-auto-ticketing/internal/credential"
	imapclient "mail-auto-ticketing/internal/imap"
	"mail-auto-ticketing/internal/ledger"
	"mail-auto-ticketing/internal/logging"
	"mail-auto-ticketing/internal/notify"
	"mail-auto-ticketing/internal/poller"
	"mail-auto-ticketing/internal/report"
	"mail-auto-ticketing/internal/tickets"

	"github.com/spf13/pflag"
)

func main() {
	var configPath, storeSecret string
	var once, listTickets, summary bool

	flagSet := pflag.NewFlagSet("auto-ticketing", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "config.yaml", "path to the YAML configuration file")
	flagSet.BoolVar(&once, "once", false, "run a single polling cycle and exit")
	flagSet.BoolVar(&listTickets, "tickets", false, "print every ticket as a JSON line and exit")
	flagSet.BoolVar(&summary, "summary", false, "print today's summary and the per-day counts and exit")
	flagSet.StringVar(&storeSecret, "store-secret", "", "read a secret from stdin and store it in the system keyring under this key")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if storeSecret != "" {
		if err := storeSecretFromStdin(storeSecret); err != nil {
			logging.Log.Fatalf("Error storing secret %s: %v", storeSecret, err)
		}
		logging.Log.Infof("Secret %s stored in the system keyring", storeSecret)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logging.Log.Fatalf("Error reading configuration file: %v", err)
	}

	logFile, err := logging.Configure(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		logging.Log.Fatalf("Error configuring logging: %v", err)
	}
	defer logFile.Close()

	ctx := context.Background()

	l, err := ledger.Open(ctx, cfg.Ledger)
	if err != nil {
		logging.Log.Fatalf("Error opening ticket ledger: %v", err)
	}
	if c, ok := l.(io.Closer); ok {
		defer c.Close()
	}
	store := tickets.NewStore(l, cfg.Ledger.Timeout)

	switch {
	case listTickets:
		if err := printTickets(ctx, store, os.Stdout); err != nil {
			logging.Log.Fatalf("Error listing tickets: %v", err)
		}
		return
	case summary:
		if err := printSummary(ctx, store, os.Stdout, time.Now()); err != nil {
			logging.Log.Fatalf("Error summarizing tickets: %v", err)
		}
		return
	}

	if err := store.EnsureHeader(ctx); err != nil {
		logging.Log.Warnf("Could not check the ledger header: %v", err)
	}

	dispatcher := notify.NewDispatcher(cfg.Notify.SupportAddress, cfg.Notify.Timeout,
		notify.BuildChannels(ctx, cfg.Notify, cfg.Mailbox.Address)...)
	logging.Log.Infof("Notification channels: %s", strings.Join(dispatcher.Channels(), ", "))

	newClient := func() imapclient.Client {
		return imapclient.NewStandardClient(cfg.Mailbox.Timeout)
	}
	p := poller.New(cfg.Mailbox, cfg.Poll, newClient, store, dispatcher)

	if once {
		cycle := p.RunCycle(ctx)
		if cycle.Err != nil {
			logging.Log.Fatalf("Polling cycle failed: %v", cycle.Err)
		}
		return
	}

	handle := automation.New(p)
	handle.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	logging.Log.Infof("Received %s, finishing the current cycle", s)

	handle.Stop()
	handle.Wait()
}

func printTickets(ctx context.Context, store *tickets.Store, w io.Writer) error {
	list, err := store.List(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	for _, t := range list {
		if err := enc.Encode(t.Fields); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(ctx context.Context, store *tickets.Store, w io.Writer, now time.Time) error {
	list, err := store.List(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Today  report.Summary    `json:"today"`
		PerDay []report.DayCount `json:"perDay"`
	}{report.Daily(list, now), report.PerDay(list)})
}

func storeSecretFromStdin(key string) error {
	switch key {
	case credential.KeyMailboxPassword, credential.KeySendGridAPIKey, credential.KeySMTPPassword:
	default:
		return fmt.Errorf("unknown secret %q", key)
	}

	value, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("empty secret")
	}
	return credential.NewKeyring().Set(key, value)
}
