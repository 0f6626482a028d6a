package cmds

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	pcmds "github.com/go-go-golems/parley/pkg/cmds"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/ui"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func NewChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat",
		Long: `Open the interactive chat.

Type a message and press tab to send it. Lines starting with / are commands,
type /help to list them.`,
		Args: cobra.NoArgs,
		RunE: runChat,
	}
	cmd.Flags().String("markdown-style", "auto", "Glamour style for replies (auto, dark, light, notty)")
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()

	// the UI owns the terminal, logs only go to --log-file
	logConfig := pcmds.LogConfigFromViper(v)
	logConfig.NoStderr = true
	if err := pcmds.InitLogger(logConfig); err != nil {
		return err
	}

	rt, err := pcmds.NewRuntime(v)
	if err != nil {
		return err
	}
	defer func() {
		_ = rt.Close()
	}()

	markdownStyle, err := cmd.Flags().GetString("markdown-style")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	options := []tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(), // turn on mouse support so we can track the mouse wheel
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		tty, err := ui.OpenTTY()
		if err != nil {
			return err
		}
		defer func() {
			_ = tty.Close()
		}()
		options = append(options, tea.WithInput(tty))
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		options = append(options, tea.WithOutput(os.Stderr))
	}

	model := ui.InitialModel(ctx, rt.Controller,
		ui.WithMarkdownRenderer(ui.NewMarkdownRenderer(markdownStyle)))
	p := tea.NewProgram(model, options...)

	rt.Router.AddHandler("ui", events.ChatTopic, ui.StepChatForwardFunc(p))

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return rt.Router.Run(ctx)
	})

	eg.Go(func() error {
		defer cancel()

		<-rt.Router.Running()
		_, err := p.Run()
		if err != nil {
			return err
		}
		log.Debug().Str("conversation", rt.Controller.Current().Name).Msg("chat closed")
		return nil
	})

	return eg.Wait()
}
