// Copyright ©2025 The aranet Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The aranet command reads Aranet environmental sensors over Bluetooth
// Low Energy.
//
// Usage:
//
//	aranet [-v] [-config file] scan [-timeout 10s]
//	aranet [-v] [-config file] read <device>
//	aranet [-v] [-config file] monitor <device>
//
// A device may be given as an address, a configured alias, or an
// advertised name to match during a scan.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aranet-go/aranet/cmd/internal/config"
	"github.com/aranet-go/aranet/monitor"
	"github.com/aranet-go/aranet/session"
)

func main() {
	verbose := flag.Bool("v", false, "enable verbose diagnostics")
	confPath := flag.String("config", config.Path(), "configuration file")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "aranet: failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer l.Sync()
		logger = l
	}

	cfg, err := config.Load(*confPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "aranet: %v\n", err)
		os.Exit(1)
	}

	coord := session.New(session.NewAdapter(),
		session.WithLogger(logger),
		session.WithReadTimeout(time.Duration(cfg.ReadTimeout)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "scan":
		err = doScan(ctx, coord, cfg, args)
	case "read":
		err = doRead(ctx, coord, cfg, logger, args)
	case "monitor":
		err = doMonitor(ctx, coord, cfg, logger, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "aranet: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: aranet [-v] [-config file] <command> [arguments]

commands:
  scan [-timeout duration]   discover nearby sensors
  read <device>              read a sensor once
  monitor <device>           read a sensor continuously
`)
}

func doScan(ctx context.Context, coord *session.Coordinator, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	timeout := fs.Duration("timeout", time.Duration(cfg.ScanTimeout), "scan duration")
	fs.Parse(args)

	devices, err := coord.Scan(ctx, *timeout)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("no sensors found")
		return nil
	}
	for _, d := range devices {
		name := d.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("%s  %4d dBm  %s\n", d.Address, d.RSSI, name)
	}
	return nil
}

func doRead(ctx context.Context, coord *session.Coordinator, cfg config.Config, logger *zap.Logger, args []string) error {
	if len(args) != 1 {
		usage()
		os.Exit(2)
	}
	dev, err := resolveDevice(ctx, coord, cfg, args[0])
	if err != nil {
		return err
	}
	res, err := coord.Read(ctx, dev)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func doMonitor(ctx context.Context, coord *session.Coordinator, cfg config.Config, logger *zap.Logger, args []string) error {
	if len(args) != 1 {
		usage()
		os.Exit(2)
	}
	dev, err := resolveDevice(ctx, coord, cfg, args[0])
	if err != nil {
		return err
	}
	m := monitor.New(coord, dev,
		monitor.WithMargin(time.Duration(cfg.Margin)),
		monitor.WithLogger(logger),
	)
	return m.Run(ctx, func(res *session.Result) {
		fmt.Printf("--- %s\n", time.Now().Format(time.RFC3339))
		printResult(res)
	})
}

func printResult(res *session.Result) {
	if res.Name != "" {
		fmt.Printf("Device: %s\n", res.Name)
	}
	if res.Firmware != "" {
		fmt.Printf("Firmware: %s\n", res.Firmware)
	}
	fmt.Println(res.Reading)
}

// resolveDevice maps a device argument to a target: a configured alias
// first, then a literal address, then an advertised-name match found
// by scanning.
func resolveDevice(ctx context.Context, coord *session.Coordinator, cfg config.Config, arg string) (session.Device, error) {
	target := cfg.Resolve(arg)
	if isAddress(target) {
		return session.Device{Address: target}, nil
	}
	devices, err := coord.Scan(ctx, time.Duration(cfg.ScanTimeout))
	if err != nil {
		return session.Device{}, err
	}
	for _, d := range devices {
		if strings.EqualFold(d.Name, target) {
			return d, nil
		}
	}
	return session.Device{}, fmt.Errorf("%w: %q", session.ErrDeviceNotFound, arg)
}

// isAddress reports whether s looks like a platform device identity: a
// MAC address, or a CoreBluetooth UUID on macOS.
func isAddress(s string) bool {
	if strings.Count(s, ":") == 5 {
		return true
	}
	return len(s) == 36 && strings.Count(s, "-") == 4
}
