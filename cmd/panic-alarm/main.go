// Command panic-alarm watches an accelerometer for tilt and shake gestures,
// plays feedback effects and sounds an alarm when a disarm attempt fails.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/panic-alarm/internal/alarm"
	"github.com/sweeney/panic-alarm/internal/audio"
	"github.com/sweeney/panic-alarm/internal/auth"
	"github.com/sweeney/panic-alarm/internal/config"
	"github.com/sweeney/panic-alarm/internal/device"
	"github.com/sweeney/panic-alarm/internal/logic"
	"github.com/sweeney/panic-alarm/internal/motion"
	"github.com/sweeney/panic-alarm/internal/mqtt"
	"github.com/sweeney/panic-alarm/internal/status"
	"github.com/sweeney/panic-alarm/internal/web"
)

var version = "dev"

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "panic-alarm",
		Short: "Gesture-triggered panic alarm",
		Long: `panic-alarm classifies accelerometer samples into tilt and shake gestures
and fires audio, vibration and flashlight effects for each one. Disarming
requires the logged-in user's password; a wrong password sounds the alarm.

Commands:
  run              Run the alarm daemon
  user add         Create a user
  user login       Make a user the current session
  user logout      End the current session
  user current     Print the current user
  classify x y z   Classify one sample`,
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "YAML config file (missing file uses defaults)")

	root.AddCommand(
		runCmd(),
		userCmd(),
		classifyCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

func runCmd() *cobra.Command {
	var (
		variant   string
		policy    string
		source    string
		broker    string
		httpAddr  string
		dbPath    string
		clipsDir  string
		heartbeat time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the alarm daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("variant") {
				cfg.Variant = variant
			}
			if flags.Changed("policy") {
				cfg.Policy = policy
			}
			if flags.Changed("motion") {
				cfg.Motion.Source = source
			}
			if flags.Changed("broker") {
				cfg.Broker = broker
			}
			if flags.Changed("http") {
				cfg.HTTPAddr = httpAddr
			}
			if flags.Changed("db") {
				cfg.DBPath = dbPath
			}
			if flags.Changed("clips") {
				cfg.ClipsDir = clipsDir
			}
			if flags.Changed("heartbeat") {
				cfg.Heartbeat = heartbeat
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return run(cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&variant, "variant", string(logic.VariantExclusive), "classifier variant: exclusive or independent")
	f.StringVar(&policy, "policy", string(logic.PolicyLatch), "debounce policy: latch or window")
	f.StringVar(&source, "motion", config.MotionIIO, "motion source: iio or nats")
	f.StringVar(&broker, "broker", "", "MQTT broker address")
	f.StringVar(&httpAddr, "http", ":80", "HTTP address (empty to disable)")
	f.StringVar(&dbPath, "db", "", "user database path")
	f.StringVar(&clipsDir, "clips", "", "directory holding <clip>.mp3 files")
	f.DurationVar(&heartbeat, "heartbeat", 15*time.Minute, "heartbeat interval (0 to disable)")
	return cmd
}

func run(cfg config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := auth.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	defer store.Close()

	if email, err := store.CurrentEmail(ctx); errors.Is(err, auth.ErrNoSession) {
		log.Printf("no user logged in; disarm attempts will sound the alarm until 'panic-alarm user login'")
	} else if err != nil {
		return fmt.Errorf("read session: %w", err)
	} else {
		log.Printf("current user: %s", email)
	}

	source, closeSource, err := openMotion(cfg)
	if err != nil {
		return fmt.Errorf("init motion: %w", err)
	}
	defer closeSource()

	if err := audio.CheckClips(cfg.ClipsDir, logic.Clips()); err != nil {
		log.Printf("audio: %v", err)
	}
	player := audio.NewBeepPlayer(cfg.ClipsDir)
	defer player.Close()

	flash, err := device.NewGPIOFlashlight(cfg.GPIO.Chip, cfg.GPIO.FlashPin)
	if err != nil {
		return fmt.Errorf("init flashlight: %w", err)
	}
	defer flash.Close()

	haptics, err := device.NewGPIOHaptics(cfg.GPIO.Chip, cfg.GPIO.VibrationPin)
	if err != nil {
		return fmt.Errorf("init vibration motor: %w", err)
	}
	defer haptics.Close()

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID)
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	loop := alarm.NewLoop(0)
	hub := web.NewHub()
	defer func() {
		log.Printf("web: closing %d websocket clients", hub.Clients())
		hub.Close()
	}()
	prompt := web.NewPrompt()

	ctrl := alarm.NewController(ctx, alarm.Config{
		Variant:     logic.Variant(cfg.Variant),
		Policy:      logic.Policy(cfg.Policy),
		Window:      cfg.Window,
		Threshold:   cfg.Threshold,
		LogoutDelay: cfg.LogoutDelay,
	}, alarm.Deps{
		Source:    source,
		Player:    player,
		Flash:     flash,
		Haptics:   haptics,
		Auth:      store,
		Prompter:  prompt,
		Sink:      alarm.FanOut{publisher, hub},
		Scheduler: loop,
	})
	tracker.Update(ctrl.Snapshot())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, alarm.NewRemote(loop, ctrl), prompt, hub)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		log.Printf("http server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: variant=%s policy=%s motion=%s broker=%s heartbeat=%v",
		cfg.Variant, cfg.Policy, cfg.Motion.Source, cfg.Broker, cfg.Heartbeat)

	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctrl, loop, publisher, publisher, tracker, cfg.Heartbeat, time.Now, ticker.C, sigCh)
}

// openMotion builds the configured sample source and its cleanup.
func openMotion(cfg config.Config) (motion.Source, func(), error) {
	switch cfg.Motion.Source {
	case config.MotionNATS:
		nc, err := motion.Connect(cfg.Motion.URL)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("motion: nats %s subject %s", cfg.Motion.URL, cfg.Motion.Subject)
		return motion.NewNATSSource(nc, cfg.Motion.Subject), nc.Close, nil
	default:
		dev := cfg.Motion.Device
		if dev == "" {
			found, err := motion.FindAccelerometer(motion.IIOBase)
			if err != nil {
				return nil, nil, err
			}
			dev = found
		}
		src, err := motion.NewIIOSource(dev, cfg.Motion.Interval)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("motion: iio %s every %v", src.Device(), cfg.Motion.Interval)
		return src, func() { src.UnsubscribeAll() }, nil
	}
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		Variant:       cfg.Variant,
		Policy:        cfg.Policy,
		WindowMs:      cfg.Window.Milliseconds(),
		Threshold:     cfg.Threshold,
		EffectMs:      logic.EffectDuration.Milliseconds(),
		LogoutDelayMs: cfg.LogoutDelay.Milliseconds(),
		TickMs:        cfg.Tick.Milliseconds(),
		HeartbeatMs:   cfg.Heartbeat.Milliseconds(),
		MotionSource:  cfg.Motion.Source,
		Broker:        cfg.Broker,
		HTTPAddr:      cfg.HTTPAddr,
	}
}

// runLoop owns the controller. Every controller call happens here: queued
// work from the loop inbox, deadline ticks and the shutdown signal.
func runLoop(ctrl *alarm.Controller, loop *alarm.Loop, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()

	refresh := func() {
		if tracker == nil {
			return
		}
		tracker.Update(ctrl.Snapshot())
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			ctrl.Teardown()
			loop.Stop()

			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				refresh()
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case fn := <-loop.Inbox():
			fn()
			refresh()

		case <-tick:
			t := now()
			ctrl.Tick(t)

			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				counts := ctrl.Snapshot().Counts
				log.Printf("heartbeat: state=%s fired=%d alarms=%d", ctrl.State(), counts.Total(), counts.Alarm)

				hbEvent := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					refresh()
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			refresh()
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
