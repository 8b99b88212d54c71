/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Wire the domain services (ledger, resolver, lifecycle)
  4. Configure HTTP router and start the job scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port           HTTP server port (default: 8080)
  -db             SQLite database path (default: leave.db)
                  Use ":memory:" for in-memory database
  -scheduler      Enable the clock-driven job scheduler (default: true)
  -smtp-host      SMTP server host (empty disables email)
  -smtp-port      SMTP server port (default: 587)
  -smtp-user      SMTP username
  -smtp-pass      SMTP password
  -smtp-from      From address for outgoing mail
  -smtp-tls       Use STARTTLS (default: true)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and close the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/leave.db"

  # Run with email enabled
  ./server -smtp-host=smtp.example.com -smtp-from=hr@example.com

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Job schedule
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimbus-hr/leave-engine/api"
	"github.com/nimbus-hr/leave-engine/leave"
	"github.com/nimbus-hr/leave-engine/mailer"
	"github.com/nimbus-hr/leave-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "leave.db", "SQLite database path")
	enableScheduler := flag.Bool("scheduler", true, "enable the job scheduler")
	smtpHost := flag.String("smtp-host", "", "SMTP server host (empty disables email)")
	smtpPort := flag.Int("smtp-port", 587, "SMTP server port")
	smtpUser := flag.String("smtp-user", "", "SMTP username")
	smtpPass := flag.String("smtp-pass", "", "SMTP password")
	smtpFrom := flag.String("smtp-from", "", "from address for outgoing mail")
	smtpTLS := flag.Bool("smtp-tls", true, "use STARTTLS")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire domain services
	mail := mailer.New(mailer.Config{
		Host:     *smtpHost,
		Port:     *smtpPort,
		Username: *smtpUser,
		Password: *smtpPass,
		From:     *smtpFrom,
		UseTLS:   *smtpTLS,
	})

	ledger := &leave.BalanceLedger{Directory: store}
	resolver := leave.NewHierarchyResolver(store)
	lifecycle := &leave.Lifecycle{
		Directory: store,
		Leaves:    store,
		Holidays:  store,
		Ledger:    ledger,
		Resolver:  resolver,
		Notifier:  store,
		Audit:     store,
		Mail:      mail,
	}

	handler := &api.Handler{
		Directory: store,
		Leaves:    store,
		Holidays:  store,
		Notifier:  store,
		Audit:     store,
		Lifecycle: lifecycle,
		Ledger:    ledger,
		Resolver:  resolver,
	}

	router := api.NewRouter(handler)

	scheduler := api.NewScheduler(ledger, lifecycle)
	if *enableScheduler {
		scheduler.Start()
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
