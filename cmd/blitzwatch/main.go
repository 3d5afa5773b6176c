// blitzwatch connects to a timer, prints both clocks once a second, and
// accepts commands on stdin: start, end, add <seconds>, timeout, quit.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/blitztime/go-wrapper/api"
	"github.com/blitztime/go-wrapper/events"
	"github.com/blitztime/go-wrapper/internal/config"
	"github.com/blitztime/go-wrapper/socket"
	"github.com/blitztime/go-wrapper/timer"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var (
		timerID    = flag.Int("timer", 0, "timer id to watch")
		token      = flag.String("token", "", "seat token (empty = observe)")
		configPath = flag.String("config", "blitztime.yaml", "config file path")
		showStats  = flag.Bool("stats", false, "print server stats and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rest := api.New(cfg.API.BaseURL, nil)
	if *showStats {
		stats, err := rest.Stats(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("fetching stats")
		}
		fmt.Printf("timers: %d total, %d ongoing, %d connections\n",
			stats.AllTimers, stats.OngoingTimers, stats.Connected)
		return
	}
	if *timerID == 0 {
		log.Fatal().Msg("-timer is required")
	}

	dispatcher := events.NewDispatcher()
	dispatcher.On(events.Error, func(payload any) {
		if err, ok := payload.(error); ok {
			log.Error().Err(err).Msg("server error")
		}
	})
	dispatcher.On(events.Disconnect, func(any) {
		log.Warn().Msg("disconnected")
		stop()
	})

	clock := clockwork.NewRealClock()
	conn, err := socket.Dial(ctx, socket.Config{
		URL:         cfg.Socket.URL,
		Credentials: api.Credentials{Timer: *timerID, Token: *token},
		Dispatcher:  dispatcher,
		Clock:       clock,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connecting")
	}
	defer conn.Close()

	go readCommands(conn)

	ticker := clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			render(conn)
		}
	}
}

func render(conn *socket.Conn) {
	snap := conn.Snapshot()
	if snap == nil {
		return
	}
	fmt.Printf("turn %d  %s | %s\n", snap.TurnNumber,
		sideLine(conn, snap, timer.SideHome), sideLine(conn, snap, timer.SideAway))
}

func sideLine(conn *socket.Conn, snap *timer.Timer, s timer.Side) string {
	if snap.Side(s) == nil {
		return fmt.Sprintf("%s: empty", s)
	}
	remaining, err := conn.Remaining(s)
	if err != nil {
		return fmt.Sprintf("%s: %v", s, err)
	}
	marker := " "
	if snap.Side(s).IsTurn {
		marker = "*"
	}
	if remaining < 0 {
		return fmt.Sprintf("%s%s: FLAG (-%s)", marker, s, (-remaining).Round(time.Second))
	}
	return fmt.Sprintf("%s%s: %s", marker, s, remaining.Round(time.Second))
}

func readCommands(conn *socket.Conn) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		var err error
		switch fields[0] {
		case "start":
			err = conn.StartTimer()
		case "end":
			err = conn.EndTurn()
		case "timeout":
			err = conn.OpponentTimedOut()
		case "add":
			if len(fields) < 2 {
				log.Warn().Msg("usage: add <seconds>")
				continue
			}
			var secs float64
			if secs, err = strconv.ParseFloat(fields[1], 64); err == nil {
				err = conn.AddTime(time.Duration(secs * float64(time.Second)))
			}
		case "quit":
			conn.Close()
			return
		default:
			log.Warn().Str("command", fields[0]).Msg("unknown command")
			continue
		}
		if err != nil {
			log.Error().Err(err).Str("command", fields[0]).Msg("command failed")
		}
	}
}
