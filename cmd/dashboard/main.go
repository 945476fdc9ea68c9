package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	dashboard "github.com/banshee-data/flight.dashboard"
	"github.com/banshee-data/flight.dashboard/internal/api"
	"github.com/banshee-data/flight.dashboard/internal/config"
	"github.com/banshee-data/flight.dashboard/internal/engine"
	"github.com/banshee-data/flight.dashboard/internal/feedsim"
	"github.com/banshee-data/flight.dashboard/internal/httputil"
	"github.com/banshee-data/flight.dashboard/internal/poller"
	"github.com/banshee-data/flight.dashboard/internal/publish"
	"github.com/banshee-data/flight.dashboard/internal/telemetry"
	"github.com/banshee-data/flight.dashboard/internal/version"
)

var (
	configFile = flag.String("config", "", "Path to dashboard JSON config (defaults built in)")
	devMode    = flag.Bool("dev", false, "Serve a simulated feed and poll it instead of the remote feed")
	listen     = flag.String("listen", ":8080", "Listen address")
	simListen  = flag.String("sim-listen", "127.0.0.1:8081", "Listen address for the simulated feed in dev mode")
	feedURL    = flag.String("feed", "", "Feed URL (overrides config)")
)

// loadConfig reads the config file when one is given and applies flag
// overrides.
func loadConfig(path, feed string) (*config.DashboardConfig, error) {
	cfg := config.EmptyDashboardConfig()
	if path != "" {
		var err error
		cfg, err = config.LoadDashboardConfig(path)
		if err != nil {
			return nil, err
		}
	}
	if feed != "" {
		cfg.SetFeedURL(feed)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// staticHandler serves the embedded front end, or ./static in dev for
// iteration without rebuilding.
func staticHandler(dev bool) http.Handler {
	if dev {
		return http.FileServer(http.Dir("./static"))
	}
	sub, err := fs.Sub(dashboard.StaticFiles, "static")
	if err != nil {
		log.Fatalf("failed to open embedded static files: %v", err)
	}
	return http.FileServer(http.FS(sub))
}

// serve runs srv until ctx is done, then shuts it down.
func serve(ctx context.Context, name string, srv *http.Server) {
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start %s server: %v", name, err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down %s server...", name)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("%s server shutdown error: %v", name, err)
		if err := srv.Close(); err != nil {
			log.Printf("%s server force close error: %v", name, err)
		}
	}
	log.Printf("%s server routine stopped", name)
}

// Main
func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg, err := loadConfig(*configFile, *feedURL)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	log.Printf("flight dashboard %s", version.String())

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// In dev mode a simulated feed stands in for the remote one.
	if *devMode {
		if *simListen == "" {
			log.Fatal("Simulated feed listen address is required in dev mode")
		}
		lat, lng := cfg.GetFallbackCenter()
		sim := feedsim.New(feedsim.Options{
			Interval: cfg.GetPollInterval(),
			Center:   telemetry.LatLng{Lat: lat, Lng: lng},
		})
		simMux := http.NewServeMux()
		simMux.Handle("/api/drone", sim)

		host, port, err := net.SplitHostPort(*simListen)
		if err != nil {
			log.Fatalf("invalid -sim-listen %q: %v", *simListen, err)
		}
		if host == "" {
			host = "127.0.0.1"
		}
		cfg.SetFeedURL("http://" + net.JoinHostPort(host, port) + "/api/drone")

		wg.Add(1)
		go func() {
			defer wg.Done()
			serve(ctx, "simulated feed", &http.Server{Addr: *simListen, Handler: simMux})
		}()
	}

	opts := engine.OptionsFromConfig(cfg)
	eng, err := engine.New(opts)
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}
	defer eng.Close()

	feed := poller.NewHTTPFeed(cfg.GetFeedURL(), httputil.NewStandardClient(cfg.GetFetchTimeout()), cfg.GetFetchTimeout())
	p := poller.New(feed, eng, poller.Options{Interval: cfg.GetPollInterval()})
	log.Printf("polling %s every %s", feed.URL(), p.Interval())

	// poll routine
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("poller stopped: %v", err)
		}
		p.Stop()
		log.Print("poll routine terminated")
	}()

	// optional pose fan-out
	if broker := cfg.GetMQTTBroker(); broker != "" {
		client, err := publish.Connect(broker, cfg.GetMQTTClientID(), 5*time.Second)
		if err != nil {
			log.Printf("pose publishing disabled: %v", err)
		} else {
			pub := publish.NewPosePublisher(client, cfg.GetMQTTTopic())
			log.Printf("publishing poses to %s on %s", broker, pub.Topic())
			wg.Add(1)
			go func() {
				defer wg.Done()
				pub.Run(ctx, eng)
				client.Disconnect(250)
				log.Print("publish routine terminated")
			}()
		}
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(eng, p, cfg).ServeMux()
		eng.AttachAdminRoutes(mux)
		p.AttachAdminRoutes(mux)

		mux.Handle("/static/", http.StripPrefix("/static", staticHandler(*devMode)))
		mux.Handle("/", http.RedirectHandler("/static/", http.StatusFound))

		serve(ctx, "HTTP", &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		})
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
