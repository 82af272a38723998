package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config file")
	envFile := flag.String("env", ".env", "Path to dotenv file (ignored if missing)")
	hashPassword := flag.String("hash-password", "", "Print a bcrypt hash for the given password and exit")
	flag.Parse()

	if *hashPassword != "" {
		h, err := HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(h)
		return
	}

	cfg, err := LoadConfig(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := NewLogger(os.Stdout, cfg.LogLevel)

	db, err := OpenDB(cfg.Storage.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.Storage.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	journal := NewJournal(db, log)
	session := NewSession(cfg, log, journal)
	session.Engine.OnFatal(func(cause error) {
		log.Error("engine failed", "error", cause)
		journal.Stop()
		db.Close()
		os.Exit(1)
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := session.Start(ctx); err != nil {
		log.Error("start session", "error", err)
		os.Exit(1)
	}

	hub := NewHub(session, cfg, log)
	go hub.Run(ctx)

	auth := NewAuth(cfg.Network.AuthSecret, cfg.Network.PasswordHash)
	server := &http.Server{
		Addr:              cfg.Network.HTTPAddr,
		Handler:           SetupRoutes(hub, auth, db, cfg.Network.PublicURL),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http listening", "addr", cfg.Network.HTTPAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "error", err)
			cancel()
		}
	}()

	if cfg.Network.SSHAddr != "" {
		sshSrv, err := NewSSHServer(session, auth, cfg.Network.SSHHostKeyPath, log)
		if err != nil {
			log.Error("ssh setup", "error", err)
			os.Exit(1)
		}
		ln, err := net.Listen("tcp", cfg.Network.SSHAddr)
		if err != nil {
			log.Error("ssh listen", "addr", cfg.Network.SSHAddr, "error", err)
			os.Exit(1)
		}
		go func() {
			if err := sshSrv.Serve(ctx, ln); err != nil {
				log.Error("ssh server", "error", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case <-session.Engine.Quit():
		log.Info("player quit, shutting down")
		cancel()
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Supervisor.ShutdownTimeout.Duration())
	defer done()
	server.Shutdown(shutdownCtx)
	if err := session.Stop(); err != nil {
		log.Error("session stop", "error", err)
	}
	journal.Stop()
}
