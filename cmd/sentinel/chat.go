package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/sentinel/internal/escalation"
	"github.com/MikeSquared-Agency/sentinel/internal/extractor"
	"github.com/MikeSquared-Agency/sentinel/internal/flow"
	"github.com/MikeSquared-Agency/sentinel/internal/input"
	"github.com/MikeSquared-Agency/sentinel/internal/processor"
)

func runChat(ctx context.Context, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}
	gen, err := newGenerator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	proc := processor.New(cat, extractor.New(cat, logger.Named("extractor")), processor.Config{
		Generator:    gen,
		Escalator:    escalation.New(nil, nil, logger.Named("escalation")),
		HistoryLimit: cfg.HistoryLimit,
	}, logger.Named("processor"))

	return chatLoop(ctx, proc, cfg.TurnTimeout, in, out)
}

func chatLoop(ctx context.Context, proc *processor.Processor, timeout time.Duration, in io.Reader, out io.Writer) error {
	sess := flow.NewSession(uuid.NewString(), time.Now().UTC())
	fmt.Fprintln(out, "Sentinel chat. Type /quit to exit.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			sess.Reset(time.Now().UTC())
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		case "/stats":
			st := sess.Stats(time.Now().UTC())
			fmt.Fprintf(out, "messages=%d state=%s complete=%t collected=%v\n",
				st.MessageCount, st.CurrentState, st.ProfileComplete, st.CollectedFields)
			continue
		}

		if err := input.Validate(line); err != nil {
			fmt.Fprintf(out, "(rejected: %v)\n", err)
			continue
		}

		turnCtx, cancel := context.WithTimeout(ctx, timeout)
		res := proc.ProcessMessage(turnCtx, sess, input.Sanitize(line), flow.ModalityText)
		cancel()

		fmt.Fprintf(out, "%s\n[state=%s intent=%s]\n", res.Reply, res.State, res.Intent)
	}
	return scanner.Err()
}
