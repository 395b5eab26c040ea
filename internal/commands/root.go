package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jheehg/webrtc-learning/internal/config"
	"github.com/jheehg/webrtc-learning/internal/ui"
	"github.com/jheehg/webrtc-learning/internal/version"
)

var (
	flagServer  string
	flagCodec   string
	flagEnvFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "roomcall",
	Short:   "Join peer-to-peer WebRTC call rooms from the terminal",
	Long:    `roomcall joins named rooms on a signaling server and negotiates a direct WebRTC media session with whoever else is in the room. Rooms hold a small number of peers; the first one in makes the offer.`,
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagServer, "server", "s", "", "signaling websocket URL (env SERVER_URL)")
	rootCmd.PersistentFlags().StringVar(&flagCodec, "codec", "", "signaling codec: json or msgpack (env CODEC)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", config.DefaultEnvFile, "dotenv file read before the environment defaults")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}

func loadConfig(opts config.Options) (*config.Config, error) {
	opts.ServerURL = flagServer
	opts.Codec = flagCodec
	opts.EnvFile = flagEnvFile
	return config.Load(opts)
}
