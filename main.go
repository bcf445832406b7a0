package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kartoza/crop-recommender/internal/config"
	"github.com/kartoza/crop-recommender/internal/server"
	webview "github.com/webview/webview_go"
)

var version = "dev"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dataDir := flag.String("data-dir", "", "Directory containing PIN.csv, APC.csv and the model artifacts")
	modelPath := flag.String("model", "", "Path to the trained model (default <data-dir>/model.gob)")
	labelsPath := flag.String("labels", "", "Path to the label encoder (default <data-dir>/label_encoder.gob)")
	extended := flag.Bool("extended-weather", false, "Add a soil moisture estimate to results")
	headless := flag.Bool("headless", false, "Run in headless mode (no GUI window)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Crop Recommender v%s\n", version)
		os.Exit(0)
	}

	// Configuration precedence: flags, then environment, then file, then defaults
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *modelPath != "" {
		cfg.ModelPath = *modelPath
	}
	if *labelsPath != "" {
		cfg.LabelEncoderPath = *labelsPath
	}
	if *extended {
		cfg.Weather.Extended = true
	}
	cfg.Version = version
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Find an available port (try up to 10 ports starting from the requested one)
	availablePort, err := findAvailablePort(cfg.Port, 10)
	if err != nil {
		log.Fatalf("Failed to find available port: %v", err)
	}
	if availablePort != cfg.Port {
		log.Printf("Port %d in use, using port %d instead", cfg.Port, availablePort)
	}
	cfg.Port = availablePort

	log.Printf("Crop Recommender v%s starting on port %d", version, cfg.Port)
	log.Printf("Data directory: %s", cfg.DataDir)

	// Create and start the server
	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for server to be ready
	serverURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
	waitForServer(serverURL, 10*time.Second)

	if *headless {
		// Headless mode: wait for signal or error
		select {
		case err := <-errCh:
			if err != nil {
				log.Fatalf("Server error: %v", err)
			}
		case sig := <-stop:
			log.Printf("Received %v signal, shutting down...", sig)
			if err := srv.Stop(); err != nil {
				log.Printf("Error during shutdown: %v", err)
			}
		}
		return
	}

	// GUI mode: open embedded WebView window
	log.Printf("Opening application window...")
	w := webview.New(false)
	defer w.Destroy()

	w.SetTitle("Crop Recommender")
	w.SetSize(960, 720, webview.HintNone)
	w.Navigate(serverURL)

	// When the webview window closes, shut down the server
	go func() {
		select {
		case err := <-errCh:
			if err != nil {
				log.Printf("Server error: %v", err)
			}
		case sig := <-stop:
			log.Printf("Received %v signal, shutting down...", sig)
			w.Terminate()
		}
	}()

	// Run blocks until the window is closed
	w.Run()

	log.Printf("Window closed, shutting down server...")
	if err := srv.Stop(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

// waitForServer polls until the server is accepting connections
func waitForServer(url string, timeout time.Duration) {
	addr := url[len("http://"):]
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	log.Printf("Warning: server may not be ready at %s", url)
}

// findAvailablePort returns startPort or the first free port after it
func findAvailablePort(startPort int, maxAttempts int) (int, error) {
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found after %d attempts starting from %d", maxAttempts, startPort)
}
