package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/campus-chat/backend/internal/config"
	"github.com/zhouzirui/campus-chat/backend/internal/ui/chatui"
	"github.com/zhouzirui/campus-chat/backend/internal/widget"
)

type options struct {
	baseURL    string
	kbFile     string
	lang       string
	transcript string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "chatcli",
		Short: "Terminal chat client for the campus chat backend",
		Long: `chatcli talks to a running backend over POST /api/chat, one message at a time.
The base URL defaults to CHAT_BASE_URL (from the environment or .env).`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("url") {
				return nil
			}
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				log.Printf("warning: failed to load .env file: %v", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts.baseURL = cfg.Widget.BaseURL
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.baseURL, "url", "", "Backend base URL (default: CHAT_BASE_URL or http://127.0.0.1:8080)")
	cmd.Flags().StringVar(&opts.kbFile, "kb-file", "", "File whose contents are sent as extra knowledge with every message")
	cmd.Flags().StringVar(&opts.lang, "lang", "", "Force the reply language: en, es or ja")
	cmd.Flags().StringVar(&opts.transcript, "transcript", "", "Write the conversation as HTML to this file on exit")

	return cmd
}

// clientConfig validates flags and turns them into a widget.ClientConfig.
func clientConfig(opts options) (widget.ClientConfig, error) {
	cfg := widget.ClientConfig{BaseURL: strings.TrimRight(strings.TrimSpace(opts.baseURL), "/")}
	if cfg.BaseURL == "" {
		return widget.ClientConfig{}, fmt.Errorf("backend URL is empty")
	}

	switch lang := strings.ToLower(strings.TrimSpace(opts.lang)); lang {
	case "", "en", "es", "ja":
		cfg.Language = lang
	default:
		return widget.ClientConfig{}, fmt.Errorf("unsupported --lang %q: want en, es or ja", opts.lang)
	}

	if opts.kbFile != "" {
		data, err := os.ReadFile(opts.kbFile)
		if err != nil {
			return widget.ClientConfig{}, fmt.Errorf("read kb file: %w", err)
		}
		cfg.Knowledge = string(data)
	}
	return cfg, nil
}

func run(ctx context.Context, opts options) error {
	cfg, err := clientConfig(opts)
	if err != nil {
		return err
	}

	// Control and append callbacks only fire from Submit, which runs after
	// program is assigned.
	var program *tea.Program
	cfg.Control = widget.ControlFunc(func(enabled bool) {
		program.Send(chatui.InputEnabledMsg{Enabled: enabled})
	})

	chatLog := widget.NewLog(nil)
	client := widget.NewClient(chatLog, cfg)
	defer client.Close()

	program = tea.NewProgram(chatui.New(ctx, client, chatLog), tea.WithAltScreen(), tea.WithContext(ctx))
	chatLog.SetOnAppend(chatui.NotifyAppend(program))

	_, runErr := program.Run()

	if opts.transcript != "" {
		if err := writeTranscript(opts.transcript, chatLog); err != nil {
			return err
		}
		fmt.Printf("transcript written to %s\n", opts.transcript)
	}
	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("run terminal ui: %w", runErr)
	}
	return nil
}

func writeTranscript(path string, chatLog *widget.Log) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}
	if err := chatLog.RenderHTML(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
