package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pulsehq/pulse/internal/simulator"
	"github.com/pulsehq/pulse/pkg/logger"
)

var (
	simVenue    string
	simDevice   string
	simCapacity int
	simInterval time.Duration
	simDuration time.Duration
	simSeed     int64
	simBroker   string
	simURL      string
)

var rootCmd = &cobra.Command{
	Use:   "pulse-sim",
	Short: "Simulate a venue's sensor device",
	Long: `pulse-sim emulates an on-site Raspberry Pi publishing sensor readings.
It follows a realistic evening traffic curve and publishes either over
MQTT (like the real devices) or straight to the HTTP readings endpoint.`,
	RunE: runSimulation,
}

func init() {
	rootCmd.Flags().StringVar(&simVenue, "venue", simulator.DefaultVenueID, "Venue identifier")
	rootCmd.Flags().StringVar(&simDevice, "device", simulator.DefaultDeviceID, "Device identifier")
	rootCmd.Flags().IntVar(&simCapacity, "capacity", simulator.DefaultCapacity, "Venue capacity")
	rootCmd.Flags().DurationVar(&simInterval, "interval", simulator.DefaultInterval, "Interval between readings")
	rootCmd.Flags().DurationVar(&simDuration, "duration", 0, "How long to run (0 = until interrupted)")
	rootCmd.Flags().Int64Var(&simSeed, "seed", 0, "Random seed (0 = time-based)")
	rootCmd.Flags().StringVar(&simBroker, "broker", "", "MQTT broker, e.g. tcp://localhost:1883")
	rootCmd.Flags().StringVar(&simURL, "url", "http://localhost:8090", "Service base URL for HTTP publishing")
}

func runSimulation(cmd *cobra.Command, args []string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		publisher simulator.Publisher
		err       error
	)
	if simBroker != "" {
		// Unique client ID so parallel simulators don't kick each other
		// off the broker.
		clientID := "pulse-sim-" + uuid.NewString()[:8]
		publisher, err = simulator.NewMQTTPublisher(simBroker, clientID, simVenue)
		if err != nil {
			return fmt.Errorf("connecting publisher: %w", err)
		}
		fmt.Printf("Publishing via MQTT to %s\n", simBroker)
	} else {
		publisher = simulator.NewHTTPPublisher(simURL)
		fmt.Printf("Publishing via HTTP to %s\n", simURL)
	}
	defer publisher.Close()

	runner := simulator.NewRunner(simulator.Config{
		VenueID:  simVenue,
		DeviceID: simDevice,
		Capacity: simCapacity,
		Interval: simInterval,
		Duration: simDuration,
		Seed:     simSeed,
	}, publisher)

	fmt.Printf("Simulating venue %s (device %s, capacity %d) every %s\n",
		simVenue, simDevice, simCapacity, simInterval)

	summary := runner.Run(ctx)

	fmt.Printf("\nPublished %s readings (%d failed) over %s\n",
		humanize.Comma(int64(summary.Published)), summary.Failed,
		summary.Elapsed.Round(time.Second))
	fmt.Printf("Door counters: %s entries, %s exits\n",
		humanize.Comma(int64(summary.Entries)), humanize.Comma(int64(summary.Exits)))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
