// Command llmtest runs an intake interview in the terminal against the
// configured language model backends. Records stay in memory.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/wolfman30/carefront-intake/internal/app/bootstrap"
	appconfig "github.com/wolfman30/carefront-intake/internal/config"
	"github.com/wolfman30/carefront-intake/internal/conversation"
	"github.com/wolfman30/carefront-intake/internal/intake"
	"github.com/wolfman30/carefront-intake/internal/patients"
	"github.com/wolfman30/carefront-intake/internal/report"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

func main() {
	name := flag.String("name", "", "patient name; registers the patient before the interview")
	cardID := flag.String("card", "", "medical card id (123-456-789)")
	flag.Parse()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New("warn")
	ctx := context.Background()

	clients, err := bootstrap.BuildLLMClients(ctx, cfg, nil, logger)
	if err != nil {
		log.Fatalf("llm backends: %v", err)
	}
	roster, err := bootstrap.BuildRoster(cfg, logger)
	if err != nil {
		log.Fatalf("roster: %v", err)
	}
	orch := intake.NewOrchestrator(
		conversation.NewEngine(clients.Chat),
		report.NewExtractor(clients.Report, logger),
		conversation.NewMemorySessionStore(time.Hour),
		patients.NewInMemoryRepository(),
		roster,
		intake.WithLogger(logger),
	)
	defer orch.Close(ctx)

	if *name != "" && *cardID != "" {
		if _, _, err := orch.Identify(ctx, *name, *cardID); err != nil {
			log.Fatalf("identify: %s", intake.UserMessage(err))
		}
	}
	if err := run(ctx, orch, *cardID, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, orch *intake.Orchestrator, cardID string, in io.Reader, out io.Writer) error {
	started, err := orch.StartIntake(ctx, cardID)
	if err != nil {
		return fmt.Errorf("start: %s", intake.UserMessage(err))
	}
	if started.Degraded {
		return fmt.Errorf("start: %s", started.Greeting)
	}
	sessionID := started.Session.ID
	fmt.Fprintf(out, "assistant> %s\n", started.Greeting)
	fmt.Fprintln(out, "(type /end to finish, /quit to leave)")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit":
			return nil
		case "/end":
			res, err := orch.EndAssessment(ctx, sessionID, true)
			if err != nil {
				fmt.Fprintf(out, "error> %s\n", intake.UserMessage(err))
				continue
			}
			return printReport(out, res)
		}

		res, err := orch.Submit(ctx, sessionID, line, nil)
		if err != nil {
			fmt.Fprintf(out, "error> %s\n", intake.UserMessage(err))
			continue
		}
		fmt.Fprintf(out, "assistant> %s\n", res.Reply.Text)
		if res.FinalizeErr != nil {
			fmt.Fprintf(out, "error> %s\n", intake.UserMessage(res.FinalizeErr))
			continue
		}
		if res.Finalized != nil {
			return printReport(out, res.Finalized)
		}
	}
}

func printReport(out io.Writer, res *intake.FinalizeResult) error {
	body, err := json.MarshalIndent(res.Report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "report (escalated=%v, saved=%v)\n%s\n", res.Escalated, res.Persisted, body)
	return nil
}
