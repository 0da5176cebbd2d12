// Package main provides the command-line front end for the udpflow traffic
// generator. It emits sequence-numbered, timestamped UDP datagrams toward a
// target host at a fixed packets-per-second rate for a bounded duration.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/udpflow"
	"github.com/opd-ai/udpflow/limits"
)

// CLI configuration
type cliConfig struct {
	port       int
	rate       int
	duration   float64
	size       int
	randomSize bool
	slip       time.Duration
	report     time.Duration
	logLevel   string
	help       bool
}

// parseCLIFlags parses command-line flags and returns the configuration.
// Each option registers a short and a long spelling on the same variable.
func parseCLIFlags() *cliConfig {
	config := &cliConfig{}

	flag.IntVar(&config.port, "p", 9999, "Target port")
	flag.IntVar(&config.port, "port", 9999, "Target port")
	flag.IntVar(&config.rate, "r", 1000, "Packets per second")
	flag.IntVar(&config.rate, "rate", 1000, "Packets per second")
	flag.Float64Var(&config.duration, "d", 60, "Test duration in seconds")
	flag.Float64Var(&config.duration, "duration", 60, "Test duration in seconds")
	flag.IntVar(&config.size, "s", limits.DefaultDatagram, "Datagram size in bytes")
	flag.IntVar(&config.size, "size", limits.DefaultDatagram, "Datagram size in bytes")
	flag.BoolVar(&config.randomSize, "random", false,
		fmt.Sprintf("Use random datagram sizes between %d and the configured size", limits.MinRandomDatagram))
	flag.DurationVar(&config.slip, "slip", 0, "Pacing slip threshold before a drift warning (0 for default)")
	flag.DurationVar(&config.report, "report", time.Second, "Interval between rate reports")
	flag.StringVar(&config.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&config.help, "help", false, "Show help message")

	flag.Parse()
	return config
}

// printUsage prints the usage information.
func printUsage() {
	fmt.Println("udpflow-send - UDP traffic generator")
	fmt.Println()
	fmt.Println("Emits sequence-numbered, timestamped UDP datagrams at a fixed")
	fmt.Println("packets-per-second rate for a bounded duration. Pair with")
	fmt.Println("udpflow-recv on the target host to measure loss and jitter.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s [options] <target-host>\n", os.Args[0])
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
}

// setupLogging configures logrus from the CLI configuration.
func setupLogging(level string) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("Unknown log level %q, using info", level)
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
}

func main() {
	config := parseCLIFlags()
	if config.help {
		printUsage()
		return
	}
	if flag.NArg() != 1 {
		printUsage()
		os.Exit(2)
	}

	setupLogging(config.logLevel)

	sender, err := udpflow.NewSender(udpflow.SenderConfig{
		Target:         flag.Arg(0),
		Port:           config.port,
		Rate:           config.rate,
		Duration:       config.duration,
		Size:           config.size,
		RandomSize:     config.randomSize,
		SlipThreshold:  config.slip,
		ReportInterval: config.report,
	})
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sender.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logrus.Fatalf("Interrupted before completing all sends")
		}
		logrus.Fatalf("Send failed: %v", err)
	}
}
