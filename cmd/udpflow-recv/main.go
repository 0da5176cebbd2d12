// Package main provides the command-line front end for the udpflow traffic
// receiver. It listens for datagrams from udpflow-send, reports receive
// rates while the flow is live, and prints loss/jitter statistics when the
// flow ends.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/udpflow"
	"github.com/opd-ai/udpflow/stats"
)

// CLI configuration
type cliConfig struct {
	port        int
	bufferSize  int
	idleTimeout time.Duration
	report      time.Duration
	logLevel    string
	help        bool
}

// parseCLIFlags parses command-line flags and returns the configuration.
// Each option registers a short and a long spelling on the same variable.
func parseCLIFlags() *cliConfig {
	config := &cliConfig{}

	flag.IntVar(&config.port, "p", 9999, "Listen port")
	flag.IntVar(&config.port, "port", 9999, "Listen port")
	flag.IntVar(&config.bufferSize, "b", 0, "Datagram read buffer size (0 for maximum)")
	flag.IntVar(&config.bufferSize, "buffer", 0, "Datagram read buffer size (0 for maximum)")
	flag.DurationVar(&config.idleTimeout, "idle-timeout", udpflow.DefaultIdleTimeout,
		"End the session when no datagram arrives within this window")
	flag.DurationVar(&config.report, "report", time.Second, "Interval between rate reports")
	flag.StringVar(&config.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&config.help, "help", false, "Show help message")

	flag.Parse()
	return config
}

// printUsage prints the usage information.
func printUsage() {
	fmt.Println("udpflow-recv - UDP traffic receiver")
	fmt.Println()
	fmt.Println("Listens for datagrams from udpflow-send and reconstructs loss,")
	fmt.Println("duplication and jitter statistics for the flow. The session ends")
	fmt.Println("on Ctrl+C or once no datagram has arrived within the idle timeout.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s [options]\n", os.Args[0])
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

// printSummary writes the final statistics block to stdout.
func printSummary(s stats.Summary) {
	fmt.Println()
	fmt.Println("--- Final statistics ---")
	fmt.Printf("Session:            %s\n", s.SessionID)
	fmt.Printf("Packets received:   %d\n", s.Received)
	fmt.Printf("Bytes received:     %d\n", s.Bytes)
	fmt.Printf("Packets lost:       %d\n", s.Lost)
	fmt.Printf("Duplicates/reorder: %d\n", s.Duplicates)
	fmt.Printf("Malformed:          %d\n", s.Errors)
	fmt.Printf("Loss rate:          %.2f%%\n", s.LossRate*100)
	fmt.Printf("Jitter mean:        %v\n", s.JitterMean)
	fmt.Printf("Jitter stddev:      %v\n", s.JitterStdDev)
	if s.Received > 0 {
		fmt.Printf("Highest sequence:   %d\n", s.MaxSequence)
		fmt.Printf("Elapsed:            %v\n", s.Elapsed)
		fmt.Printf("Achieved rate:      %.2f pps\n", s.AchievedPPS)
	}
}

func main() {
	config := parseCLIFlags()
	if config.help {
		printUsage()
		return
	}

	setupLogging(config.logLevel)

	receiver, err := udpflow.NewReceiver(udpflow.ReceiverConfig{
		Port:           config.port,
		BufferSize:     config.bufferSize,
		IdleTimeout:    config.idleTimeout,
		ReportInterval: config.report,
	})
	if err != nil {
		logrus.Fatalf("Failed to start receiver: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := receiver.Run(ctx)
	if err != nil {
		logrus.Fatalf("Receive failed: %v", err)
	}
	printSummary(summary)
}
