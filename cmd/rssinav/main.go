package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rssi-homing/rssi_nav"
)

type options struct {
	configPath  string
	signalIface string
	serialPort  string
	hintUDP     string
	mqttBroker  string
	outputAddr  string
	logLevel    string
}

func main() {
	opts := &options{}
	root := &cobra.Command{
		Use:           "rssinav",
		Short:         "Home a wheeled robot onto the strongest point of a radio signal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to JSON config (defaults are used when empty).")
	root.PersistentFlags().StringVar(&opts.signalIface, "signal-iface", "", "Override wireless interface (e.g. wlan0).")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log level (debug, info, warn, error).")

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the homing controller",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHoming(cmd.Context(), opts)
		},
	}
	run.Flags().StringVar(&opts.serialPort, "serial-port", "", "Override drive board serial port.")
	run.Flags().StringVar(&opts.hintUDP, "hint-udp", "", "Override vision hint UDP listen addr (host:port).")
	run.Flags().StringVar(&opts.mqttBroker, "mqtt-broker", "", "Override vision hint MQTT broker (tcp://host:1883).")
	run.Flags().StringVar(&opts.outputAddr, "output-addr", "", "Override command mirror UDP addr (host:port).")

	var count int
	measure := &cobra.Command{
		Use:   "measure",
		Short: "Sample the signal without moving and print filtered level and rough distance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMeasure(cmd.Context(), opts, count)
		},
	}
	measure.Flags().IntVar(&count, "count", 0, "Number of bursts to take (0 runs until interrupted).")

	root.AddCommand(run, measure)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "rssinav:", err)
		stop()
		os.Exit(1)
	}
}

func loadConfig(opts *options) (rssi_nav.AppConfig, error) {
	cfg := rssi_nav.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := rssi_nav.LoadConfig(opts.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if opts.signalIface != "" {
		cfg.Signal.Interface = opts.signalIface
	}
	if opts.serialPort != "" {
		cfg.Serial.Port = opts.serialPort
	}
	if opts.hintUDP != "" {
		cfg.Hint.UDPAddr = opts.hintUDP
	}
	if opts.mqttBroker != "" {
		cfg.Hint.MQTT.Broker = opts.mqttBroker
	}
	if opts.outputAddr != "" {
		cfg.Output.UDPAddr = opts.outputAddr
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, cfg.Validate()
}

func runHoming(ctx context.Context, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := rssi_nav.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	wifi := rssi_nav.NewProcWirelessReader(cfg.Signal)
	if err := wifi.Check(); err != nil {
		return err
	}
	if cfg.Serial.Port == "" {
		return errors.New("serial.port must be set")
	}
	base, err := rssi_nav.OpenSerialBase(cfg.Serial)
	if err != nil {
		return err
	}
	defer func() { _ = base.Close() }()

	act := rssi_nav.TeeActuator{base}
	if cfg.Output.UDPAddr != "" {
		mirror, err := rssi_nav.NewUDPActuator(cfg.Output.UDPAddr)
		if err != nil {
			return errors.Wrap(err, "output")
		}
		defer func() { _ = mirror.Close() }()
		act = append(act, mirror)
	}

	hw := rssi_nav.Hardware{Signal: wifi, Range: base, Actuator: act, Scanner: base}
	if cfg.Hint.UDPAddr != "" || cfg.Hint.MQTT.Broker != "" {
		store := rssi_nav.NewHintStore(cfg.Hint.TTL.D())
		defer store.Close()
		if cfg.Hint.UDPAddr != "" {
			if err := rssi_nav.StartUDPHintListener(ctx, cfg.Hint, store, logger); err != nil {
				return errors.Wrap(err, "hint listener")
			}
		}
		if cfg.Hint.MQTT.Broker != "" {
			client, err := rssi_nav.StartMQTTHints(cfg.Hint.MQTT, store, logger)
			if err != nil {
				return err
			}
			defer client.Disconnect(250)
		}
		hw.Hints = store
	}

	metrics := rssi_nav.NewMetrics()
	if srv := rssi_nav.StartViz(cfg.Viz, metrics, logger); srv != nil {
		defer func() { _ = srv.Close() }()
	}

	runner := rssi_nav.NewRunner(cfg, hw, metrics, logger)
	return runner.Run(ctx)
}

func runMeasure(ctx context.Context, opts *options, count int) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := rssi_nav.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	wifi := rssi_nav.NewProcWirelessReader(cfg.Signal)
	if err := wifi.Check(); err != nil {
		return err
	}
	return rssi_nav.RunMeasure(ctx, cfg, wifi, count, func(res rssi_nav.MeasureResult) {
		if !res.OK {
			logger.Warn("empty burst", zap.Float64("filtered", res.Filtered.X))
			return
		}
		logger.Info("signal",
			zap.Float64("burst", res.Burst.Value),
			zap.Int("valid", res.Burst.Valid),
			zap.Float64("filtered", res.Filtered.X),
			zap.Float64("variance", res.Filtered.P),
			zap.Float64("distance_m", res.DistanceM))
	})
}
