package agentcli

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/neuroplastio/neio-split/internal/hidsvc"
	"github.com/neuroplastio/neio-split/internal/linksvc"
	"github.com/neuroplastio/neio-split/internal/scansvc"
	"github.com/neuroplastio/neio-split/pkg/agent"
	"github.com/neuroplastio/neio-split/pkg/wire"
	"github.com/spf13/cobra"
)

func Main(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	dir, err := os.UserConfigDir()
	if err != nil {
		return err
	}
	cmd := NewRootCmd(filepath.Join(dir, "neio-split"))
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

type agentProvider func() *agent.Agent

// standalone marks commands that do not need the agent, its database or its configuration.
var standalone = map[string]string{"agent": "none"}

func NewRootCmd(configDir string) *cobra.Command {
	cfg := agent.Config{
		DataDir:     filepath.Join(configDir, "data"),
		SplitConfig: filepath.Join(configDir, "split.yml"),
	}
	rootCmd := &cobra.Command{
		Use:          "neio-split",
		Short:        "Neuroplast.io split keyboard agent",
		Long:         `Runs one half of a split keyboard, or its peer, and keeps their indicators in sync.`,
		SilenceUsage: true,
	}
	var a *agent.Agent
	agentProvider := func() *agent.Agent {
		return a
	}
	rootCmd.PersistentFlags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&cfg.SplitConfig, "config", cfg.SplitConfig, "split config file")
	rootCmd.PersistentFlags().BoolVar(&cfg.Debug, "debug", false, "enable debug logging")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations["agent"] == "none" {
			return nil
		}
		var err error
		a, err = agent.NewAgent(cfg, agent.WithOutput(cmd.OutOrStdout()))
		return err
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if a == nil {
			return nil
		}
		return a.Close()
	}
	rootCmd.AddCommand(NewRun(agentProvider))
	rootCmd.AddCommand(NewReplay(agentProvider))
	rootCmd.AddCommand(NewListPeers(agentProvider))
	rootCmd.AddCommand(NewListDevices())
	rootCmd.AddCommand(NewDecode())
	return rootCmd
}

func NewRun(agent agentProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the agent",
		Long:  `Runs the agent in the role set in split.yml until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return agent().Run(cmd.Context())
		},
	}
}

func NewReplay(agent agentProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <script>",
		Short: "Replay a recorded script",
		Long:  `Runs a half from a YAML script of key presses and layer changes against an in-process peer.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := scansvc.ReadScript(args[0])
			if err != nil {
				return err
			}
			return agent().Replay(cmd.Context(), script)
		},
	}
}

func NewListPeers(agent agentProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "list-peers",
		Short: "List known peers",
		Long:  `List the halves that connected to this device.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			peers, err := agent().ListPeers()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), peers)
		},
	}
}

func NewListDevices() *cobra.Command {
	return &cobra.Command{
		Use:         "list-devices",
		Short:       "List HID devices",
		Long:        `List HID devices connected to the system.`,
		Annotations: standalone,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := hidsvc.ListDevices()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), devices)
		},
	}
}

func NewDecode() *cobra.Command {
	return &cobra.Command{
		Use:         "decode <hex>",
		Short:       "Decode a link frame or payload",
		Long:        `Decode a hex encoded link frame, or a bare payload if it is not a valid frame.`,
		Args:        cobra.MinimumNArgs(1),
		Annotations: standalone,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := hex.DecodeString(strings.Join(args, ""))
			if err != nil {
				return fmt.Errorf("invalid hex: %w", err)
			}
			out := cmd.OutOrStdout()
			payload := data
			frame, err := linksvc.DecodeFrame(data)
			switch {
			case err == nil:
				fmt.Fprintf(out, "frame: channel=%d urgent=%t size=%d\n", frame.Channel, frame.Urgent(), len(frame.Payload))
				payload = frame.Payload
			case errors.Is(err, linksvc.ErrChecksum):
				fmt.Fprintln(out, "not a frame: checksum mismatch")
			}
			msg, err := wire.Decode(payload)
			if err != nil {
				return fmt.Errorf("failed to decode payload: %w", err)
			}
			fmt.Fprintf(out, "%s: %s\n", msg.Kind, msg)
			return nil
		},
	}
}

func printJSON(out io.Writer, v any) error {
	jsonB, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(jsonB))
	return err
}
