// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Thermoquad/stationlink/internal/capture"
	"github.com/Thermoquad/stationlink/internal/link"
	"github.com/Thermoquad/stationlink/internal/logging"
	"github.com/Thermoquad/stationlink/internal/station"
	"github.com/Thermoquad/stationlink/pkg/dsproto"
)

var (
	runMode        string
	runEnable      bool
	runCapturePath string
	runDuration    int
	runStatsEvery  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the driver station link",
	Long: `Open the FMS, robot and NetConsole sockets and drive the robot.

Robot packets are sent every 20 ms and FMS status every 500 ms once the FMS
address is known. Watchdogs reset a channel when it goes quiet.

When attached to a terminal, an operator console shows the control state
and accepts commands such as "enable", "mode teleop", "estop" or "reboot"
(type "help"). Esc or "quit" leaves the console and stops the link.

Traffic can be recorded to a capture file (--capture) and mirrored to a
serial port or WebSocket (--port / --url). Ctrl+C stops the link and prints
statistics.`,
	RunE: runStation,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runMode, "mode", "disabled", "Initial mode (disabled, test, auto, teleop)")
	runCmd.Flags().BoolVar(&runEnable, "enable", false, "Start enabled")
	runCmd.Flags().StringVar(&runCapturePath, "capture", "", "Capture file (overrides the config)")
	runCmd.Flags().IntVar(&runDuration, "duration", 0, "Stop after this many seconds (0 runs until interrupted)")
	runCmd.Flags().IntVar(&runStatsEvery, "stats", 0, "Log statistics every N seconds (0 disables)")
}

func runStation(cmd *cobra.Command, args []string) error {
	mode, err := parseMode(runMode)
	if err != nil {
		return err
	}

	state := cfg.ControlState()
	state.Mode = mode
	state.Enabled = runEnable
	proto := dsproto.New(cfg.ProtocolGeneration(), dsproto.WithState(state))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(runDuration)*time.Second)
		defer cancel()
	}

	opts := []station.Option{}

	capturePath := cfg.Capture.Path
	if runCapturePath != "" {
		capturePath = runCapturePath
	}
	if capturePath != "" {
		w, err := capture.Create(capturePath, proto.Generation())
		if err != nil {
			return err
		}
		defer w.Close()
		log.Info().Str("path", capturePath).Str("session", w.Session().String()).Msg("capturing traffic")
		opts = append(opts, station.WithSink(w))
	}

	if cfg.Mirror.Port != "" || cfg.Mirror.URL != "" {
		conn, connInfo, err := link.Open(ctx, mirrorOptions())
		if err != nil {
			return fmt.Errorf("mirror: %w", err)
		}
		mirror, err := capture.NewWriter(conn, proto.Generation(), time.Now())
		if err != nil {
			conn.Close()
			return fmt.Errorf("mirror: %w", err)
		}
		defer mirror.Close()
		log.Info().Str("connection", connInfo).Msg("mirroring traffic")
		opts = append(opts, station.WithSink(mirror))
	}

	console := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	logger := log.Logger
	logWriter := &consoleLogWriter{}
	if console {
		// Station logs go to the console history instead of the terminal
		logCfg := logging.Resolve(logging.ProfileRuntime, cfg.Log.Level, true)
		logCfg.Out = logWriter
		logCfg.Timestamp = false
		logger = logging.New(logCfg)
		opts = append(opts, station.WithLogger(logger))
	}

	s := station.New(proto, cfg, opts...)

	if runStatsEvery > 0 {
		go logStatistics(ctx, logger, s.Statistics(), time.Duration(runStatsEvery)*time.Second)
	}

	if console {
		if err := runConsole(ctx, s, logWriter); err != nil {
			return err
		}
	} else {
		fmt.Println(renderTitle(fmt.Sprintf("Stationlink - %s, team %d", proto.Name(), cfg.Team)))
		fmt.Printf("%s %s\n", renderLabel("Robot:"), proto.RobotAddress())
		fmt.Printf("%s %s\n\n", renderLabel("State:"), formatState(proto))

		if err := s.Run(ctx); err != nil {
			return err
		}
	}

	fmt.Println()
	fmt.Print(s.Statistics().String())
	return nil
}

// runConsole runs the station behind the operator console. Leaving the
// console stops the station, and a stopped station closes the console.
func runConsole(ctx context.Context, s *station.Station, logWriter *consoleLogWriter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newConsoleModel(s.Protocol(), s.Statistics()))
	logWriter.p = p

	stationErr := make(chan error, 1)
	go func() {
		err := s.Run(ctx)
		stationErr <- err
		p.Send(stationStoppedMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-stationErr
		return fmt.Errorf("console error: %w", err)
	}

	cancel()
	return <-stationErr
}

func logStatistics(ctx context.Context, logger zerolog.Logger, stats *dsproto.Statistics, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			robot := stats.Channel(dsproto.ChannelRobot)
			fms := stats.Channel(dsproto.ChannelFMS)
			logger.Info().
				Uint64("robot_sent", robot.Sent).
				Uint64("robot_received", robot.Received).
				Uint64("robot_resets", robot.Resets).
				Uint64("fms_sent", fms.Sent).
				Uint64("fms_received", fms.Received).
				Msg("statistics")
		}
	}
}
