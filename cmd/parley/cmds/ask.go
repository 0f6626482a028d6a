package cmds

import (
	"context"
	"io"
	"os"
	"strings"

	pcmds "github.com/go-go-golems/parley/pkg/cmds"
	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func NewAskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [PROMPT...]",
		Short: "Send a single message and stream the reply to stdout",
		Long: `Send a single message and stream the reply to stdout.

Without arguments, the prompt is read from stdin.`,
		RunE: runAsk,
	}
	cmd.Flags().String("image", "", "Image file or URL to attach to the message")
	cmd.Flags().String("export", "", "Write the conversation to this file afterwards (.json, .yaml)")
	cmd.Flags().Bool("print-raw-events", false, "Print the raw events instead of the reply")
	return cmd
}

func readPrompt(args []string, stdin *os.File) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if isatty.IsTerminal(stdin.Fd()) {
		return "", errors.New("no prompt given")
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", errors.Wrap(err, "could not read prompt from stdin")
	}
	return string(b), nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(args, os.Stdin)
	if err != nil {
		return err
	}

	imagePath, _ := cmd.Flags().GetString("image")
	exportPath, _ := cmd.Flags().GetString("export")
	printRawEvents, _ := cmd.Flags().GetBool("print-raw-events")

	var image *conversation.ImageContent
	if imagePath != "" {
		image, err = conversation.NewImageContentFromFile(imagePath)
		if err != nil {
			return err
		}
	}

	rt, err := pcmds.NewRuntime(viper.GetViper(),
		pcmds.WithRouterOptions(events.WithDumpWriter(cmd.OutOrStdout())))
	if err != nil {
		return err
	}
	defer func() {
		_ = rt.Close()
	}()

	if printRawEvents {
		rt.Router.AddHandler("raw-events", events.ChatTopic, rt.Router.DumpRawEvents)
	} else {
		rt.Router.AddHandler("printer", events.ChatTopic, events.StepPrinterFunc("", cmd.OutOrStdout()))
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return rt.Router.Run(ctx)
	})

	eg.Go(func() error {
		defer cancel()

		<-rt.Router.Running()
		msg, err := rt.Controller.SubmitTurn(ctx, prompt, image)
		if err != nil {
			return err
		}
		log.Debug().Int("tokens", rt.Controller.Current().TokenCount).Int("length", len(msg.Text())).Msg("reply done")

		if exportPath != "" {
			return rt.Controller.Export(exportPath)
		}
		return nil
	})

	return eg.Wait()
}
