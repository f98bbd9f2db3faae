package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"lumen/internal/config"
)

// ParseArgs builds the runtime configuration: defaults, then the YAML
// config file with environment overrides, then command line flags on top.
func ParseArgs() (*config.Config, error) {
	options, err := config.Load(configPathArg(os.Args[1:]))
	if err != nil {
		return nil, err
	}

	rootCmd := &cobra.Command{
		Use:           "lumen",
		Short:         "Audio-reactive visual compositor",
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	// Devices command (interactive picker)
	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "Pick the capture device interactively",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "devices"
		},
	}
	rootCmd.AddCommand(devicesCmd)

	// Config file (already consumed above, registered so --help shows it)
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file")

	// Audio Device Configuration
	rootCmd.PersistentFlags().IntVarP(&options.Audio.DeviceID, "device", "d", options.Audio.DeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&options.Audio.Channels, "channels", "c", options.Audio.Channels,
		"Number of channels to capture (1=mono, 2=stereo)")
	rootCmd.PersistentFlags().Float64VarP(&options.Audio.SampleRate, "sample-rate", "s", options.Audio.SampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&options.Audio.FramesPerBuffer, "frames-per-buffer", "b", options.Audio.FramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&options.Audio.LowLatency, "low-latency", "l", options.Audio.LowLatency,
		"Use low latency mode for real-time processing")
	rootCmd.PersistentFlags().BoolVar(&options.Audio.Enabled, "audio", options.Audio.Enabled,
		"Capture audio; disable to run visuals without reactivity")

	// Render Configuration
	rootCmd.PersistentFlags().IntVar(&options.Render.Width, "width", options.Render.Width,
		"Output frame width in pixels")
	rootCmd.PersistentFlags().IntVar(&options.Render.Height, "height", options.Render.Height,
		"Output frame height in pixels")
	rootCmd.PersistentFlags().IntVar(&options.Render.TargetFPS, "fps", options.Render.TargetFPS,
		"Target frames per second")
	rootCmd.PersistentFlags().StringVar(&options.Render.Background, "background", options.Render.Background,
		"Background color layer name")
	rootCmd.PersistentFlags().StringVar(&options.Render.Overlay, "overlay", options.Render.Overlay,
		"Overlay effect layer name")

	// Presentation Configuration
	rootCmd.PersistentFlags().BoolVar(&options.Present.WebSocketEnabled, "ws", options.Present.WebSocketEnabled,
		"Serve frames to WebSocket viewers")
	rootCmd.PersistentFlags().StringVar(&options.Present.WebSocketAddr, "ws-addr", options.Present.WebSocketAddr,
		"WebSocket listen address")
	rootCmd.PersistentFlags().BoolVar(&options.Present.UDPEnabled, "udp", options.Present.UDPEnabled,
		"Send frame previews to a UDP target")
	rootCmd.PersistentFlags().StringVar(&options.Present.UDPTargetAddress, "udp-target", options.Present.UDPTargetAddress,
		"UDP frame target address")

	// Recording Configuration
	rootCmd.PersistentFlags().BoolVarP(&options.Recording.Enabled, "record", "r", options.Recording.Enabled,
		"Record audio from the specified input device")
	rootCmd.PersistentFlags().StringVarP(&options.Recording.OutputFile, "output", "o", options.Recording.OutputFile,
		"Output file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")

	// Debug Configuration
	rootCmd.PersistentFlags().BoolVarP(&options.Debug, "verbose", "v", options.Debug,
		"Show verbose output")
	rootCmd.PersistentFlags().BoolVar(&options.Headless, "headless", false,
		"Run without the control dashboard")

	if options.Recording.OutputFile == "" {
		options.Recording.OutputFile = "recording-" +
			time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}

	return options, nil
}

// configPathArg pre-scans the arguments for --config so the file can be
// loaded before flag defaults are bound to its values.
func configPathArg(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if len(arg) > len("--config=") && arg[:len("--config=")] == "--config=" {
			return arg[len("--config="):]
		}
	}
	return ""
}
